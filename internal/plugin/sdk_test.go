package plugin

import (
	"testing"

	"pricebot/internal/config"
)

func targetFor(tg config.TelegramConfig, owners []int64) int64 {
	cfgm := config.NewConfigManager("")
	cfgm.Commit(&config.Config{Telegram: tg})
	b := &PluginBase{Deps: PluginDeps{Config: cfgm, OwnerUserID: owners}}
	return b.NotifyTarget().ChatID
}

func TestNotifyTargetPrefersNotifyChatID(t *testing.T) {
	got := targetFor(config.TelegramConfig{GroupLog: "-100200", NotifyChatID: 42}, []int64{7})
	if got != 42 {
		t.Fatalf("ChatID = %d, want 42", got)
	}
}

func TestNotifyTargetFallsBackToGroupLog(t *testing.T) {
	got := targetFor(config.TelegramConfig{GroupLog: "-100200"}, []int64{7})
	if got != -100200 {
		t.Fatalf("ChatID = %d, want -100200", got)
	}
}

func TestNotifyTargetFallsBackToFirstOwner(t *testing.T) {
	got := targetFor(config.TelegramConfig{}, []int64{7, 8})
	if got != 7 {
		t.Fatalf("ChatID = %d, want 7", got)
	}
}

func TestNotifyTargetUnconfigured(t *testing.T) {
	b := &PluginBase{}
	if got := b.NotifyTarget().ChatID; got != 0 {
		t.Fatalf("ChatID = %d, want 0", got)
	}
}
