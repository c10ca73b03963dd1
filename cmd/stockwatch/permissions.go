package main

import (
	"github.com/bwmarrin/discordgo"
)

// IsOwner reports whether userID is listed in the configured owners.
func IsOwner(cfg *Config, userID string) bool {
	for _, ownerID := range cfg.OwnerIDs {
		if userID == ownerID {
			return true
		}
	}
	return false
}

// HasAdministrator reports whether a permission bitset grants administrator.
func HasAdministrator(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0
}

// IsAdmin checks whether the author of a message may run admin commands in
// its channel. Owners are always admins.
func IsAdmin(s *discordgo.Session, cfg *Config, userID, channelID string) (bool, error) {
	if IsOwner(cfg, userID) {
		return true, nil
	}
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false, err
	}
	return HasAdministrator(perms), nil
}
