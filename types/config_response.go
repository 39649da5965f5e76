package types

// ConfigResponse is the JSON shape for GET /api/confshare/v1/config. It only
// exposes the non-secret part of AppConfig; the API key never leaves the box.
type ConfigResponse struct {
	Alias           string  `json:"alias"`
	Origin          string  `json:"origin"`
	SharePath       string  `json:"sharePath"`
	MaxLinkLength   int     `json:"maxLinkLength"`
	WarningFraction float64 `json:"warningFraction"`
	MaxQRLength     int     `json:"maxQrLength"`
	ModelsEndpoint  string  `json:"modelsEndpoint"`
}

// ConfigPatchRequest is the JSON body for PATCH /api/confshare/v1/config
// (partial update, all fields optional).
type ConfigPatchRequest struct {
	Alias           *string  `json:"alias"`
	Origin          *string  `json:"origin"`
	SharePath       *string  `json:"sharePath"`
	MaxLinkLength   *int     `json:"maxLinkLength"`
	WarningFraction *float64 `json:"warningFraction"`
	MaxQRLength     *int     `json:"maxQrLength"`
	ModelsEndpoint  *string  `json:"modelsEndpoint"`
}
