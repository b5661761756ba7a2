package entity

import "time"

// Payment platforms whose webhook payloads a product may accept.
const (
	PlatformCartPanda = "cartpanda"
	PlatformHotmart   = "hotmart"
	PlatformYampi     = "yampi" // Kiwify sends the same shape and shares this value
)

// Video providers a lesson can reference.
const (
	VideoTypeYouTube = "youtube"
	VideoTypeVimeo   = "vimeo"
	VideoTypeFile    = "file"
)

// Product is a purchasable course or membership tier.
// WebhookSecret addresses this product's webhook endpoint and is unique
// across products when set. EnabledPlatforms gates which payload shapes the
// webhook accepts. EnableAccessRemoval opts the product into honoring
// cancellation/refund events. UnlockAfterDays is the product-level drip
// delay, overridable per module.
type Product struct {
	ID                  string
	Name                string
	Description         string
	BannerURL           string
	SaleURL             string
	IsActive            bool
	IsHidden            bool // visible only to entitled members
	WebhookSecret       string
	EnabledPlatforms    []string
	EnableAccessRemoval bool
	UnlockAfterDays     int
	Modules             []Module
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PlatformEnabled reports whether the product accepts webhooks from platform.
func (p *Product) PlatformEnabled(platform string) bool {
	for _, pl := range p.EnabledPlatforms {
		if pl == platform {
			return true
		}
	}
	return false
}

// Module is an ordered grouping of lessons within a product.
// UnlockAfterDays overrides the product drip delay when >= 0; -1 means
// inherit. OrderIndex ordering is advisory: ties break on creation time.
type Module struct {
	ID              string
	ProductID       string
	Name            string
	OrderIndex      int
	UnlockAfterDays int
	Lessons         []Lesson
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectiveUnlockDays resolves the drip delay for this module given its
// parent product's delay.
func (m *Module) EffectiveUnlockDays(productDays int) int {
	if m.UnlockAfterDays >= 0 {
		return m.UnlockAfterDays
	}
	return productDays
}

// Lesson is a leaf content unit.
type Lesson struct {
	ID          string
	ModuleID    string
	Name        string
	Description string
	OrderIndex  int
	VideoURL    string
	VideoType   string // youtube, vimeo or file
	Files       []LessonFile
	Duration    int // seconds
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LessonFile is a downloadable attachment on a lesson.
type LessonFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
