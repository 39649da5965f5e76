package models

import (
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/confshare/confshare-go/session"
)

// ShareLinkTTL bounds how long a generated link stays retrievable by its id.
// The link itself never expires; only this lookup convenience does.
const ShareLinkTTL = 3600 * time.Second // 1 hour

var (
	shareLinkMu sync.RWMutex
	shareLinks  = ttlworker.NewCache[string, *session.GenerateResult](ShareLinkTTL)
)

// CacheShareLink stores a generation result by its share id so the QR PNG can
// be served by a separate request.
func CacheShareLink(result *session.GenerateResult) {
	if result == nil {
		return
	}
	shareLinkMu.Lock()
	defer shareLinkMu.Unlock()
	shareLinks.Set(result.ShareID, result)
}

// GetShareLink retrieves a generation result by share id.
func GetShareLink(shareID string) (*session.GenerateResult, bool) {
	shareLinkMu.RLock()
	defer shareLinkMu.RUnlock()
	res := shareLinks.Get(shareID)
	if res == nil {
		return nil, false
	}
	return res, true
}

// RemoveShareLink drops a cached result, e.g. when the session closes.
func RemoveShareLink(shareID string) {
	shareLinkMu.Lock()
	defer shareLinkMu.Unlock()
	shareLinks.Delete(shareID)
}
