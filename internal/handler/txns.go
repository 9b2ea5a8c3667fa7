package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/txns"
)

// RecordTxn appends a donation to the ledger. The external transaction id
// must be unique across the whole ledger.
func (h *Handler) RecordTxn(c *gin.Context) {
	var body struct {
		Name   string  `json:"name"`
		Number string  `json:"number"`
		TxnID  string  `json:"txnId"`
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	in := txns.Input{
		Name:   strings.TrimSpace(body.Name),
		Number: strings.TrimSpace(body.Number),
		TxnID:  strings.TrimSpace(body.TxnID),
		Amount: body.Amount,
	}
	if in.Number == "" || in.TxnID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number and txnId are required"})
		return
	}
	if in.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	rec, err := h.txns.Create(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, txns.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Transaction already recorded"})
			return
		}
		h.logger.Error("record txn failed", zap.String("txnId", in.TxnID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "txn": rec})
}

// FullTxnRecord returns the paginated ledger together with the running total
// over every recorded transaction, not just the current page.
func (h *Handler) FullTxnRecord(c *gin.Context) {
	list, err := h.txns.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list txns failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	total, err := h.txns.TotalAmount(c.Request.Context())
	if err != nil {
		h.logger.Error("txn total failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"totalAmount": total,
		"count":       len(list),
		"page":        page,
		"pageSize":    pageSize,
		"txns":        paginate(list, page, pageSize),
	})
}

// FilterTxns returns transactions matching every provided criterion.
func (h *Handler) FilterTxns(c *gin.Context) {
	f := txns.Filter{
		Name:   strings.TrimSpace(c.Query("name")),
		Number: strings.TrimSpace(c.Query("number")),
		TxnID:  strings.TrimSpace(c.Query("txnId")),
	}
	list, err := h.txns.FilterList(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("filter txns failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(list), "txns": list})
}
