package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/codingric/moneyman/ledger/models"
	"github.com/codingric/moneyman/ledger/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Ledger interface {
	Create(ctx context.Context, sessionID, title string, magnitude float64, d models.Direction) (string, error)
	List(ctx context.Context, sessionID string) ([]models.Transaction, error)
	Get(ctx context.Context, sessionID, id string) (*models.Transaction, error)
	Summarize(ctx context.Context, sessionID string) (models.Summary, error)
}

type CreateTransactionInput struct {
	Title  string   `json:"title" binding:"required"`
	Amount *float64 `json:"amount" binding:"required"`
	Type   string   `json:"type" binding:"required,oneof=credit debit"`
}

type TransactionURI struct {
	ID string `uri:"id" binding:"required"`
}

type Transactions struct {
	Ledger   Ledger
	Sessions *session.Resolver
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

func NewTransactions(l Ledger, r *session.Resolver) *Transactions {
	return &Transactions{Ledger: l, Sessions: r}
}

// Register mounts the transaction routes on r.
func (h *Transactions) Register(r gin.IRouter) {
	g := r.Group("/transactions")
	g.POST("", h.CreateTransaction)
	g.GET("", RequireSession(), h.FindTransactions)
	g.GET("/summary", RequireSession(), h.Summary)
	g.GET("/:id", RequireSession(), h.FindTransaction)
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrMissingSession):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("route", c.FullPath()).Msg("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// POST /transactions
// Create new transaction, minting a session when none was presented
func (h *Transactions) CreateTransaction(c *gin.Context) {
	var input CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Debug().Err(err).Msg("CreateTransaction.error")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	presented, _ := c.Cookie(session.CookieName)
	sessionID, isNew, err := h.Sessions.ResolveOrCreate(presented)
	if err != nil {
		abortWithError(c, err)
		return
	}

	id, err := h.Ledger.Create(c.Request.Context(), sessionID, input.Title, *input.Amount, models.Direction(input.Type))
	if err != nil {
		abortWithError(c, err)
		return
	}
	log.Debug().Str("id", id).Bool("new_session", isNew).Msg("Transaction created")

	if isNew {
		setSessionCookie(c, sessionID, h.SecureCookie)
	}
	c.Status(http.StatusCreated)
}

// GET /transactions
// Find all transactions of the session
func (h *Transactions) FindTransactions(c *gin.Context) {
	transactions, err := h.Ledger.List(c.Request.Context(), c.GetString(sessionKey))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GET /transactions/:id
// Find a transaction, null when the session does not own it
func (h *Transactions) FindTransaction(c *gin.Context) {
	var uri TransactionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.Ledger.Get(c.Request.Context(), c.GetString(sessionKey), uri.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// GET /transactions/summary
// Balance of the session
func (h *Transactions) Summary(c *gin.Context) {
	summary, err := h.Ledger.Summarize(c.Request.Context(), c.GetString(sessionKey))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
