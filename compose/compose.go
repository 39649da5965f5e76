package compose

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

// MissingSensitiveDataError reports a sensitive item the user selected but
// whose data could not be collected. Silently omitting a secret would make
// the share look successful while being unusable, so this aborts composition.
type MissingSensitiveDataError struct {
	ID    string
	Label string
	Err   error
}

func (e *MissingSensitiveDataError) Error() string {
	return fmt.Sprintf("cannot share %s: %v", e.Label, e.Err)
}

func (e *MissingSensitiveDataError) Unwrap() error {
	return e.Err
}

// Composer assembles the payload that will be encrypted.
type Composer struct {
	reg    *registry.Registry
	logger *log.Logger
}

// NewComposer creates a composer over the registry.
func NewComposer(reg *registry.Registry) *Composer {
	return &Composer{reg: reg, logger: tool.DefaultLogger}
}

// Compose collects every selected item into a fresh SharePayload.
//
// Absent data omits the field entirely rather than writing null; downstream
// consumers distinguish the two. Collector failures on non-sensitive items
// degrade to omission with a warning; on sensitive items they abort with
// MissingSensitiveDataError.
func (c *Composer) Compose(ctx context.Context, selection types.SelectionState, req registry.Request) (types.SharePayload, error) {
	payload := make(types.SharePayload)
	for _, d := range c.reg.All() {
		if !selection[d.ID] {
			continue
		}
		value, ok, err := c.collectOne(ctx, d, clampRequest(d, req))
		if err != nil {
			if d.Sensitive {
				return nil, &MissingSensitiveDataError{ID: d.ID, Label: d.Label, Err: err}
			}
			c.logger.Warnf("collector for share item %q failed, omitting: %v", d.ID, err)
			continue
		}
		if !ok {
			continue
		}
		payload[d.ID] = value
	}
	return payload, nil
}

// clampRequest limits count-carrying requests to the data actually available
// so collectors are never over-requested.
func clampRequest(d *registry.Descriptor, req registry.Request) registry.Request {
	if d.AvailableCount == nil {
		return req
	}
	if avail := d.AvailableCount(); req.MessageCount > avail {
		req.MessageCount = avail
	}
	if req.MessageCount < 0 {
		req.MessageCount = 0
	}
	return req
}

func (c *Composer) collectOne(ctx context.Context, d *registry.Descriptor, req registry.Request) (value any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, ok, err = nil, false, fmt.Errorf("collector panicked: %v", r)
		}
	}()
	return d.CollectData(ctx, req)
}
