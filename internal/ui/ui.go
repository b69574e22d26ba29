package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playcache/internal/formatter"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/slideshow"
	"github.com/desertthunder/playcache/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	SlideshowView
	LibraryView
	EmptyView
	ErrorView
)

// Opts configures a [Model].
type Opts struct {
	Engine      tasks.SyncEngine
	ManifestURL string
	CacheDir    string
	Interval    time.Duration // slideshow cadence, defaults to [slideshow.DefaultInterval]
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	engine      tasks.SyncEngine
	manifestURL string
	cacheDir    string
	interval    time.Duration

	view     ViewState
	gen      int
	cancel   context.CancelFunc
	fetched  bool
	snapshot models.ProgressSnapshot
	items    []models.ResolvedMediaItem
	cycler   *slideshow.Cycler
	library  list.Model
	err      error

	width   int
	height  int
	overall progress.Model
	row     progress.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	if opts.Interval <= 0 {
		opts.Interval = slideshow.DefaultInterval
	}
	return &Model{
		ctx:         ctx,
		engine:      opts.Engine,
		manifestURL: opts.ManifestURL,
		cacheDir:    opts.CacheDir,
		interval:    opts.Interval,
		view:        SyncView,
		overall:     progress.New(progress.WithGradient(colorPrimary, colorSuccess), progress.WithWidth(48)),
		row:         progress.New(progress.WithSolidFill(colorPrimary), progress.WithWidth(20), progress.WithoutPercentage()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the first sync pass.
func (m *Model) Init() tea.Cmd {
	return m.startSync()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.overall.Width = min(max(msg.Width-8, 10), 60)
		if m.view == LibraryView {
			m.library.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case progress.FrameMsg:
		pm, cmd := m.overall.Update(msg)
		if bar, ok := pm.(progress.Model); ok {
			m.overall = bar
		}
		return m, cmd

	case Msg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.handleMsg(msg)
	}

	if m.view == LibraryView {
		var cmd tea.Cmd
		m.library, cmd = m.library.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSyncState:
		return m.handleState(msg.gen, msg.state(), msg.next())
	case MsgSyncClosed:
		m.stopSync()
		return m, nil
	case MsgSlideTick:
		if m.view != SlideshowView && m.view != LibraryView {
			return m, nil
		}
		m.cycler.Advance()
		return m, m.tick(msg.gen)
	}
	return m, nil
}

func (m *Model) handleState(gen int, state models.SyncState, next tea.Cmd) (tea.Model, tea.Cmd) {
	switch s := state.(type) {
	case models.ProgressState:
		m.snapshot = s.Snapshot
		m.fetched = true
		m.view = SyncView
		return m, tea.Batch(m.overall.SetPercent(s.Snapshot.Fraction()), next)

	case models.SuccessState:
		m.items = s.Items
		if len(s.Items) == 0 {
			m.view = EmptyView
			return m, next
		}
		if m.cycler == nil {
			m.cycler, _ = slideshow.New(len(s.Items))
		} else {
			m.cycler.Reset(len(s.Items))
		}
		m.library = newLibrary(s.Items, m.width, m.height)
		m.view = SlideshowView
		return m, tea.Batch(next, m.tick(gen))

	case models.ErrorState:
		m.err = s.Err
		m.view = ErrorView
		return m, next
	}
	return m, next
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && !(m.view == LibraryView && m.library.FilterState() == list.Filtering) {
		m.stopSync()
		return m, tea.Quit
	}

	switch m.view {
	case SlideshowView:
		switch {
		case key.Matches(msg, m.keys.next):
			m.cycler.Advance()
		case key.Matches(msg, m.keys.browse):
			m.library.SetSize(m.width-4, m.height-8)
			m.library.Select(m.cycler.Current())
			m.view = LibraryView
		case key.Matches(msg, m.keys.retry):
			return m, m.startSync()
		}
		return m, nil

	case LibraryView:
		if m.library.FilterState() != list.Filtering {
			switch {
			case key.Matches(msg, m.keys.back):
				m.view = SlideshowView
				return m, nil
			case key.Matches(msg, m.keys.enter):
				if selected, ok := m.library.SelectedItem().(mediaItem); ok {
					m.cycler.Seek(selected.index)
				}
				m.view = SlideshowView
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.library, cmd = m.library.Update(msg)
		return m, cmd

	case EmptyView, ErrorView:
		if key.Matches(msg, m.keys.retry) {
			return m, m.startSync()
		}
	}
	return m, nil
}

// startSync cancels any running pass and starts a new one. Slideshow ticks from the previous
// pass are dropped because their generation no longer matches.
func (m *Model) startSync() tea.Cmd {
	m.stopSync()
	m.gen++

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.fetched = false
	m.view = SyncView
	m.snapshot = models.ProgressSnapshot{}
	m.items = nil
	m.err = nil

	return waitForState(m.gen, m.engine.Run(ctx, m.manifestURL, m.cacheDir))
}

func (m *Model) stopSync() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func waitForState(gen int, states <-chan models.SyncState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return syncClosedMsg(gen)
		}
		return syncStateMsg(gen, state, waitForState(gen, states))
	}
}

func (m *Model) tick(gen int) tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return slideTickMsg(gen)
	})
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return styles.frame.Render(m.renderSync())
	case SlideshowView:
		return styles.frame.Render(m.renderSlideshow())
	case LibraryView:
		return m.renderLibrary()
	case EmptyView:
		return styles.frame.Render(m.renderEmpty())
	case ErrorView:
		return styles.frame.Render(m.renderError())
	default:
		return ""
	}
}

func (m *Model) renderSync() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Preparing Content"))
	b.WriteString("\n")

	if !m.fetched {
		b.WriteString(styles.muted.Render("Fetching playlist..."))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
		return b.String()
	}

	b.WriteString(m.overall.View())
	b.WriteString("\n\n")
	b.WriteString(formatter.ProgressLine(m.snapshot))
	b.WriteString("\n")

	shown, waiting := formatter.ActiveDownloads(m.snapshot, formatter.MaxActiveShown)
	if len(shown) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.ok.Render("Active Downloads:"))
		b.WriteString("\n")
		for _, u := range shown {
			fmt.Fprintf(&b, "  %-32s %s %s\n", truncate(u.Name, 32), m.row.ViewAs(u.Progress), formatter.ItemStatus(u))
		}
		if waiting > 0 {
			b.WriteString(styles.muted.Render(fmt.Sprintf("  +%d more waiting...", waiting)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderSlideshow() string {
	idx := m.cycler.Current()
	item := m.items[idx]

	title := styles.title.Render(fmt.Sprintf("Now Showing  %d/%d", idx+1, len(m.items)))
	info := fmt.Sprintf("%s  %s\n%s", styles.warn.Render(item.Kind.String()), item.Name, styles.muted.Render(item.URI))

	helpKeys := []key.Binding{m.keys.next, m.keys.browse, m.keys.retry, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderLibrary() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.library.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEmpty() string {
	helpKeys := []key.Binding{m.keys.retry, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No media found"), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderError() string {
	return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
