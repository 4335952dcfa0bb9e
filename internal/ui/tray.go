// Package ui renders the system tray entry for the agent.
package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/captionstudio/captionstudio-agent/internal/project"
)

//go:embed icon.png
var iconBytes []byte

type Tray struct {
	session *project.Session
	logger  *slog.Logger

	projectItem  *systray.MenuItem
	captionsItem *systray.MenuItem
	creditsItem  *systray.MenuItem

	mu    sync.Mutex
	unsub func()

	onOpenEditor func() error
	onQuit       func()
}

type TrayConfig struct {
	Session      *project.Session
	Logger       *slog.Logger
	OnOpenEditor func() error
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session:      cfg.Session,
		logger:       cfg.Logger,
		onOpenEditor: cfg.OnOpenEditor,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Caption Studio")
	systray.SetTooltip("Caption Studio Agent")

	t.projectItem = systray.AddMenuItem("Project: none", "Currently open project")
	t.projectItem.Disable()

	t.captionsItem = systray.AddMenuItem("Captions: 0", "Captions in the open project")
	t.captionsItem.Disable()

	t.creditsItem = systray.AddMenuItem("Credits: -", "Remaining render credits")
	t.creditsItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Editor...", "Open the caption editor")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Caption Studio Agent")

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.handleOpenEditor()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.unsub = t.session.Store().Subscribe(t.refresh)

	t.refresh()
	t.refreshCredits()
	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	if t.unsub != nil {
		t.unsub()
	}
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleOpenEditor() {
	if t.onOpenEditor != nil {
		if err := t.onOpenEditor(); err != nil {
			t.logger.Error("failed to open editor", "error", err)
		}
	}
	t.refresh()
	t.refreshCredits()
}

// refresh re-reads the session into the disabled status rows. The store
// calls it through Subscribe after every committed mutation.
func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := t.session.ProjectName()
	if name == "" {
		name = "none"
	}
	t.projectItem.SetTitle("Project: " + name)
	t.captionsItem.SetTitle(fmt.Sprintf("Captions: %d", len(t.session.Store().List())))
}

// refreshCredits asks the cloud for the remaining render balance. Kept off
// the store-change path so caption edits never trigger network calls.
func (t *Tray) refreshCredits() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := t.session.Credits(ctx)
	if err != nil {
		t.logger.Warn("credits lookup failed", "error", err)
		return
	}
	t.UpdateCredits(c.Remaining)
}

// UpdateProject is called when a project is created or loaded.
func (t *Tray) UpdateProject(name string, captions int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projectItem.SetTitle("Project: " + name)
	t.captionsItem.SetTitle(fmt.Sprintf("Captions: %d", captions))
}

// UpdateCredits shows the remaining render credits.
func (t *Tray) UpdateCredits(remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creditsItem.SetTitle(fmt.Sprintf("Credits: %d", remaining))
}

func (t *Tray) Quit() {
	systray.Quit()
}
