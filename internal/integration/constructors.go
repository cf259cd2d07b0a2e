package integration

import (
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
)

// DefaultConstructors maps every platform with a built-in integration to its
// constructor. Platforms missing here can still carry config for scheduling.
func DefaultConstructors() map[models.Platform]Constructor {
	return map[models.Platform]Constructor{
		models.PlatformFacebook:  apiConstructor(facebookAdapter{}),
		models.PlatformInstagram: apiConstructor(instagramAdapter{}),
		models.PlatformYoutube:   apiConstructor(youtubeAdapter{}),
		models.PlatformEtsy:      apiConstructor(listingAdapter{}),
		models.PlatformEbay:      apiConstructor(listingAdapter{}),
		models.PlatformShopify:   apiConstructor(listingAdapter{}),
		models.PlatformPoshmark:  NewBrowser,
		models.PlatformMercari:   NewBrowser,
		models.PlatformDepop:     NewBrowser,
	}
}

func apiConstructor(adapter APIAdapter) Constructor {
	return func(cfg models.PlatformConfig, deps Dependencies) (Integration, error) {
		if cfg.Type != models.IntegrationTypeAPI {
			return nil, fmt.Errorf("%s: expected an api config, got %q", cfg.Platform, cfg.Type)
		}
		return NewAPIIntegration(cfg, deps, adapter), nil
	}
}

func NewBrowser(cfg models.PlatformConfig, deps Dependencies) (Integration, error) {
	if cfg.Type != models.IntegrationTypeBrowser {
		return nil, fmt.Errorf("%s: expected a browser config, got %q", cfg.Platform, cfg.Type)
	}
	return NewBrowserIntegration(cfg, deps)
}
