package controller

import (
	"strings"

	"corretor_backend/internal/service"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/utils/storage"
)

var (
	publicSiteURL string
	adminEmail    string
	imageStorage  storage.Uploader
)

// Init wires the settings handlers need beyond the database.
func Init(siteURL, admin string, uploader storage.Uploader) {
	publicSiteURL = strings.TrimRight(siteURL, "/")
	adminEmail = strings.ToLower(strings.TrimSpace(admin))
	imageStorage = uploader
}

func pipeline() *service.Pipeline {
	return service.NewPipeline(database.GetDB())
}

func matcher() *service.Matcher {
	return service.NewMatcher(database.GetDB(), publicSiteURL)
}

func bridge() *service.Bridge {
	return service.NewBridge(database.GetDB(), matcher())
}
