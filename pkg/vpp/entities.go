package vpp

// User is a VPP user record as returned by getUsers.
type User struct {
	UserID          int64  `json:"userId"`
	ClientUserIDStr string `json:"clientUserIdStr,omitempty"`
	Email           string `json:"email,omitempty"`
	Status          string `json:"status,omitempty"` // Registered, Associated, Retired or Deleted
	InviteURL       string `json:"inviteUrl,omitempty"`
	InviteCode      string `json:"inviteCode,omitempty"`
	ITSIDHash       string `json:"itsIdHash,omitempty"`
}

// License is a VPP license record as returned by getLicenses.
type License struct {
	LicenseID       int64  `json:"licenseId"`
	AdamIDStr       string `json:"adamIdStr,omitempty"`
	ProductTypeID   int    `json:"productTypeId,omitempty"`
	PricingParam    string `json:"pricingParam,omitempty"`
	ProductTypeName string `json:"productTypeName,omitempty"`
	IsIrrevocable   bool   `json:"isIrrevocable,omitempty"`
	UserID          int64  `json:"userId,omitempty"`
	ClientUserIDStr string `json:"clientUserIdStr,omitempty"`
	ITSIDHash       string `json:"itsIdHash,omitempty"`
	Status          string `json:"status,omitempty"`
}

// ClientContext identifies the client instance that owns a VPP token.
type ClientContext struct {
	Hostname string `json:"hostname"`
	GUID     string `json:"guid"`
}
