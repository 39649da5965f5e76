package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

// UserStatus returns server status for the rendering layer.
// GET /api/confshare/v1/status
func UserStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":   true,
		"state":     shareController.State(),
		"lastError": shareController.LastError(),
	})
}

// UserConfigGet returns the non-secret config from config.yaml.
// GET /api/confshare/v1/config
func UserConfigGet(c *gin.Context) {
	cfg := tool.GetCurrentConfig()
	c.JSON(http.StatusOK, types.ConfigResponse{
		Alias:           cfg.Alias,
		Origin:          cfg.Origin,
		SharePath:       cfg.SharePath,
		MaxLinkLength:   cfg.MaxLinkLength,
		WarningFraction: cfg.WarningFraction,
		MaxQRLength:     cfg.MaxQRLength,
		ModelsEndpoint:  cfg.ModelsEndpoint,
	})
}

// UserConfigPatch accepts full or partial config and persists to config.yaml.
// Budget and link settings take effect on the next start.
// PATCH /api/confshare/v1/config
func UserConfigPatch(c *gin.Context) {
	var body types.ConfigPatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}

	cfg := *tool.GetCurrentConfig()

	if body.Alias != nil {
		cfg.Alias = *body.Alias
	}
	if body.Origin != nil {
		cfg.Origin = *body.Origin
	}
	if body.SharePath != nil {
		cfg.SharePath = *body.SharePath
	}
	if body.MaxLinkLength != nil {
		if *body.MaxLinkLength <= 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("maxLinkLength must be positive"))
			return
		}
		cfg.MaxLinkLength = *body.MaxLinkLength
	}
	if body.WarningFraction != nil {
		if *body.WarningFraction <= 0 || *body.WarningFraction >= 1 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("warningFraction must be between 0 and 1"))
			return
		}
		cfg.WarningFraction = *body.WarningFraction
	}
	if body.MaxQRLength != nil {
		if *body.MaxQRLength <= 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("maxQrLength must be positive"))
			return
		}
		cfg.MaxQRLength = *body.MaxQRLength
	}
	if body.ModelsEndpoint != nil {
		cfg.ModelsEndpoint = *body.ModelsEndpoint
	}

	if err := tool.SaveConfig(tool.ConfigPath, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	tool.CurrentConfig = cfg
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
