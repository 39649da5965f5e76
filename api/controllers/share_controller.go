package controllers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/confshare/confshare-go/api/models"
	"github.com/confshare/confshare-go/compose"
	"github.com/confshare/confshare-go/crypt"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/session"
	"github.com/confshare/confshare-go/tool"
)

var (
	shareController *session.Controller
	shareRegistry   *registry.Registry
	// lastShareID tracks the most recent generation so close can evict it.
	// Guarded by lastShareMu; gin runs handlers concurrently.
	lastShareMu sync.Mutex
	lastShareID string
	// generateLimiter throttles the expensive compose+encrypt pipeline.
	generateLimiter = rate.NewLimiter(rate.Limit(1), 3)
)

// SetShareController wires the session controller and registry into the
// package-level handlers. Call once at startup.
func SetShareController(ctrl *session.Controller, reg *registry.Registry) {
	shareController = ctrl
	shareRegistry = reg
}

// OpenShareSessionRequest optionally seeds the session from an inbound link.
type OpenShareSessionRequest struct {
	InboundLink     string `json:"inboundLink,omitempty"`
	InboundPassword string `json:"inboundPassword,omitempty"`
}

type shareItemView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Sensitive bool   `json:"sensitive"`
	Included  bool   `json:"included"`
}

// OpenShareSession starts the share flow.
// POST /api/confshare/v1/session/open
func OpenShareSession(c *gin.Context) {
	var request OpenShareSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
			return
		}
	}

	password := request.InboundPassword
	if request.InboundLink != "" && password == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("inboundPassword is required with inboundLink"))
		return
	}
	if request.InboundLink != "" {
		// Re-share inflow: the link must decrypt before its password is adopted.
		ciphertext, ok := crypt.ParseShareURL(request.InboundLink)
		if !ok {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("inboundLink carries no share fragment"))
			return
		}
		if _, err := crypt.Decrypt(ciphertext, password); err != nil {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("inboundLink does not decrypt with the given password"))
			return
		}
	}

	if err := shareController.Open(password); err != nil {
		c.JSON(http.StatusConflict, tool.FastReturnError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"items":        listItems(),
		"messageCount": shareController.MessageCount(),
	}))
}

// CloseShareSession ends the share flow, persisting selection state.
// POST /api/confshare/v1/session/close
func CloseShareSession(c *gin.Context) {
	shareController.Close()
	lastShareMu.Lock()
	id := lastShareID
	lastShareID = ""
	lastShareMu.Unlock()
	if id != "" {
		models.RemoveShareLink(id)
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// ListShareItems returns the registered items with their current inclusion.
// GET /api/confshare/v1/session/items
func ListShareItems(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"items": listItems()}))
}

func listItems() []shareItemView {
	selection := shareController.Selection()
	descriptors := shareRegistry.All()
	items := make([]shareItemView, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, shareItemView{
			ID:        d.ID,
			Label:     d.Label,
			Sensitive: d.Sensitive,
			Included:  selection[d.ID],
		})
	}
	return items
}

// ToggleShareItemRequest flips one item.
type ToggleShareItemRequest struct {
	ID       string `json:"id"`
	Included bool   `json:"included"`
}

// ToggleShareItem includes or excludes one item and kicks off a new estimate
// round. The fresh budget arrives over the WebSocket push or GetBudget.
// POST /api/confshare/v1/session/toggle
func ToggleShareItem(c *gin.Context) {
	var request ToggleShareItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := shareController.Toggle(request.ID, request.Included); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// SetMessageCountRequest adjusts the shared conversation tail length.
type SetMessageCountRequest struct {
	MessageCount int `json:"messageCount"`
}

// SetMessageCount updates the conversation message count.
// POST /api/confshare/v1/session/message-count
func SetMessageCount(c *gin.Context) {
	var request SetMessageCountRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := shareController.SetMessageCount(request.MessageCount); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// SetPasswordRequest replaces the session password.
type SetPasswordRequest struct {
	Password string `json:"password"`
	Lock     bool   `json:"lock"`
}

// SetSessionPassword replaces the session password, optionally locking it so
// it survives modal close.
// POST /api/confshare/v1/session/password
func SetSessionPassword(c *gin.Context) {
	var request SetPasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := shareController.SetPassword(request.Password, request.Lock); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// GetBudget returns the latest completed estimate round.
// GET /api/confshare/v1/session/budget
func GetBudget(c *gin.Context) {
	budget, ok := shareController.CurrentBudget()
	if !ok {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"ready": false}))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"ready":  true,
		"budget": budget,
	}))
}

// GenerateShareLink runs the generate pipeline and caches the result for the
// QR endpoint.
// POST /api/confshare/v1/session/generate
func GenerateShareLink(c *gin.Context) {
	if !generateLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, tool.FastReturnError("Too many generate requests"))
		return
	}

	result, err := shareController.Generate(c.Request.Context())
	if err != nil {
		var missing *compose.MissingSensitiveDataError
		if errors.As(err, &missing) {
			c.JSON(http.StatusConflict, tool.FastReturnErrorWithData(missing.Error(), map[string]any{
				"item": missing.ID,
			}))
			return
		}
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	models.CacheShareLink(result)
	lastShareMu.Lock()
	lastShareID = result.ShareID
	lastShareMu.Unlock()

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"shareId":    result.ShareID,
		"link":       result.Link,
		"linkLength": result.LinkLength,
		"qrSkipped":  result.QRSkipped,
	}))
}
