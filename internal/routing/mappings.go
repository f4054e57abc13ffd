package routing

import (
	"github.com/deskops/itsm-service/internal/domain"
)

// UpsertMapping returns mappings with the entry for typ pointing at accountID.
// Entries for other types keep their order; a new type is appended.
func UpsertMapping(mappings []domain.NotificationMapping, typ domain.NotificationType, accountID string) []domain.NotificationMapping {
	out := make([]domain.NotificationMapping, 0, len(mappings)+1)
	replaced := false
	for _, m := range mappings {
		if m.Type != typ {
			out = append(out, m)
			continue
		}
		if !replaced {
			out = append(out, domain.NotificationMapping{Type: typ, AccountID: accountID})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, domain.NotificationMapping{Type: typ, AccountID: accountID})
	}
	return out
}

// UpsertSlackMapping is UpsertMapping for Slack channel mappings.
func UpsertSlackMapping(mappings []domain.SlackMapping, typ domain.NotificationType, channelID string) []domain.SlackMapping {
	out := make([]domain.SlackMapping, 0, len(mappings)+1)
	replaced := false
	for _, m := range mappings {
		if m.Type != typ {
			out = append(out, m)
			continue
		}
		if !replaced {
			out = append(out, domain.SlackMapping{Type: typ, ChannelID: channelID})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, domain.SlackMapping{Type: typ, ChannelID: channelID})
	}
	return out
}

// RemoveMapping drops the entry for typ.
func RemoveMapping(mappings []domain.NotificationMapping, typ domain.NotificationType) []domain.NotificationMapping {
	out := make([]domain.NotificationMapping, 0, len(mappings))
	for _, m := range mappings {
		if m.Type != typ {
			out = append(out, m)
		}
	}
	return out
}

// SetDefaultAccount returns a copy of accounts where only id is flagged default.
// When id is unknown the input slice is returned as is.
func SetDefaultAccount(accounts []domain.EmailAccount, id string) []domain.EmailAccount {
	if !containsAccount(accounts, id) {
		return accounts
	}
	out := make([]domain.EmailAccount, len(accounts))
	for i, a := range accounts {
		a.IsDefault = a.ID == id
		out[i] = a
	}
	return out
}

// SetDefaultSlackChannel is SetDefaultAccount for Slack channels.
func SetDefaultSlackChannel(channels []domain.SlackChannel, id string) []domain.SlackChannel {
	found := false
	for _, c := range channels {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		return channels
	}
	out := make([]domain.SlackChannel, len(channels))
	for i, c := range channels {
		c.IsDefault = c.ID == id
		out[i] = c
	}
	return out
}

// FindAccount returns the account with id.
func FindAccount(accounts []domain.EmailAccount, id string) (*domain.EmailAccount, bool) {
	for i := range accounts {
		if accounts[i].ID == id {
			account := accounts[i]
			return &account, true
		}
	}
	return nil, false
}

// FindSlackChannel returns the channel with id.
func FindSlackChannel(channels []domain.SlackChannel, id string) (*domain.SlackChannel, bool) {
	for i := range channels {
		if channels[i].ID == id {
			channel := channels[i]
			return &channel, true
		}
	}
	return nil, false
}

func containsAccount(accounts []domain.EmailAccount, id string) bool {
	_, ok := FindAccount(accounts, id)
	return ok
}
