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
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PassView ViewState = iota
	ResultView
	TrackListView
)

const maxLogLines = 8

// PassFunc runs one pass and reports progress on the channel. It must not close the channel.
type PassFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.PassResult, error)

// TracksFunc returns the playlist tracks after a pass.
type TracksFunc func() []models.TrackRecord

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	run       PassFunc
	tracks    TracksFunc
	now       func() time.Time
	width     int
	height    int
	spinner   spinner.Model
	bar       progress.Model
	trackList list.Model
	running   bool
	updates   chan tasks.ProgressUpdate
	done      chan passOutcome
	current   tasks.ProgressUpdate
	log       []string
	result    *tasks.PassResult
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model that runs a pass on start.
func NewModel(ctx context.Context, run PassFunc, tracks TracksFunc) *Model {
	return &Model{
		ctx:     ctx,
		view:    PassView,
		run:     run,
		tracks:  tracks,
		now:     time.Now,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the spinner and the first pass.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startPass())
}

// Result returns the outcome of the last finished pass.
func (m *Model) Result() (*tasks.PassResult, error) {
	return m.result, m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-10, 10), 60)
		if m.view == TrackListView {
			m.trackList.SetSize(msg.Width-4, msg.Height-4)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case PassView:
			return m.handlePassKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.current = update
			if update.Phase == tasks.Fetching && update.Step > 0 {
				m.log = append(m.log, update.Message)
				if len(m.log) > maxLogLines {
					m.log = m.log[len(m.log)-maxLogLines:]
				}
			}
			return m, waitForProgress(m.updates, m.done)

		case MsgPassComplete:
			outcome := msg.data.(passOutcome)
			m.running = false
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			return m, nil
		}
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PassView:
		return m.renderPass()
	case ResultView:
		return m.renderResult()
	case TrackListView:
		return m.renderTrackList()
	default:
		return ""
	}
}

func (m *Model) handlePassKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PassView
		m.log = nil
		m.current = tasks.ProgressUpdate{}
		m.result = nil
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.startPass())
	case key.Matches(msg, m.keys.tracks):
		if m.tracks == nil {
			return m, nil
		}
		m.trackList = list.New(trackItems(m.tracks(), m.now()), list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-4, 10))
		m.trackList.Title = "Playlist tracks"
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.back):
			m.view = ResultView
			return m, nil
		case msg.String() == "q", msg.String() == "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

// startPass runs the pass in a goroutine and returns the command that relays its progress.
func (m *Model) startPass() tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 64)
	done := make(chan passOutcome, 1)
	m.updates = progressChan
	m.done = done
	m.running = true

	go func() {
		result, err := m.run(m.ctx, progressChan)
		done <- passOutcome{result: result, err: err}
		close(progressChan)
	}()

	return waitForProgress(progressChan, done)
}

// waitForProgress delivers the next update, or the pass outcome once the channel closes.
// Update re-arms it after each progress message.
func waitForProgress(progressChan <-chan tasks.ProgressUpdate, done <-chan passOutcome) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			outcome := <-done
			return passCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPass() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("freshlist · update"))
	b.WriteString("\n")

	phase := m.current.Phase.String()
	if phase == "idle" || phase == "" {
		phase = "starting"
	}
	fmt.Fprintf(&b, "%s %s\n\n", styles.phase.Render(phase), m.spinner.View())

	if m.current.Total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.current.Step) / float64(m.current.Total)))
		b.WriteString("\n\n")
	}
	if m.current.Message != "" {
		b.WriteString(m.current.Message)
		b.WriteString("\n")
	}
	for _, line := range m.log {
		b.WriteString(styles.help.Render("  " + line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.forView(PassView)))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView(m.keys.forView(ResultView))

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Pass failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	r := m.result
	title := styles.ok.Render("✓ Playlist updated")
	info := fmt.Sprintf(
		"\nArtists: %d\nCandidates: %d\nAdded: %d (%d duplicates skipped)\nEvicted: %d expired, %d orphaned\nPlaylist: %d tracks\nDuration: %s",
		r.Artists,
		r.Fetched,
		r.Reconcile.Added,
		r.Reconcile.Skipped,
		r.Reconcile.Expired,
		r.Reconcile.Orphaned,
		r.Synced,
		r.Duration.Round(time.Millisecond),
	)

	var failed string
	if len(r.FailedArtists) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to fetch %d artists:", len(r.FailedArtists))))
		for _, name := range r.FailedArtists {
			failed += fmt.Sprintf("\n  • %s", name)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

func (m *Model) renderTrackList() string {
	helpView := m.help.ShortHelpView(m.keys.forView(TrackListView))
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}
