// Package routing decides which outbound channel carries a notification.
//
// Resolution order for a notification type:
//  1. an explicit mapping whose target still exists
//  2. the target flagged as default
//  3. the target with the lowest ID
//
// An empty target set resolves to nil. The functions never mutate their inputs.
package routing

import (
	"github.com/deskops/itsm-service/internal/domain"
)

// ValidNotificationType reports whether raw names a routable notification type.
func ValidNotificationType(raw string) bool {
	return domain.NotificationType(raw).Valid()
}

// ResolveAccount returns the email account used for typ, or nil when none is configured.
func ResolveAccount(typ domain.NotificationType, accounts []domain.EmailAccount, mappings []domain.NotificationMapping) *domain.EmailAccount {
	mapped := ""
	for _, m := range mappings {
		if m.Type == typ {
			mapped = m.AccountID
			break
		}
	}
	idx := resolve(len(accounts), mapped,
		func(i int) string { return accounts[i].ID },
		func(i int) bool { return accounts[i].IsDefault })
	if idx < 0 {
		return nil
	}
	account := accounts[idx]
	return &account
}

// ResolveSlackChannel returns the Slack channel used for typ, or nil when none is configured.
func ResolveSlackChannel(typ domain.NotificationType, channels []domain.SlackChannel, mappings []domain.SlackMapping) *domain.SlackChannel {
	mapped := ""
	for _, m := range mappings {
		if m.Type == typ {
			mapped = m.ChannelID
			break
		}
	}
	idx := resolve(len(channels), mapped,
		func(i int) string { return channels[i].ID },
		func(i int) bool { return channels[i].IsDefault })
	if idx < 0 {
		return nil
	}
	channel := channels[idx]
	return &channel
}

func resolve(n int, mappedID string, idAt func(int) string, defaultAt func(int) bool) int {
	if n == 0 {
		return -1
	}
	if mappedID != "" {
		for i := 0; i < n; i++ {
			if idAt(i) == mappedID {
				return i
			}
		}
	}
	for i := 0; i < n; i++ {
		if defaultAt(i) {
			return i
		}
	}
	lowest := 0
	for i := 1; i < n; i++ {
		if idAt(i) < idAt(lowest) {
			lowest = i
		}
	}
	return lowest
}
