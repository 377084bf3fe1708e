package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ClassifyView ViewState = iota
	ResultView
	ConfirmSaveView
	SavingView
	SavedView
)

// Runner classifies a playlist reference, reporting progress on the channel.
type Runner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, ref string, emotions []string) (*models.ClassifyResult, error)
}

// Saver writes a finished result back as one playlist per label.
type Saver func(ctx context.Context, result *models.ClassifyResult) (*models.SaveResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	runner       Runner
	saver        Saver
	ref          string
	emotions     []string
	width        int
	height       int
	spinner      spinner.Model
	trackList    list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	batchLog     []string
	result       *models.ClassifyResult
	warning      string
	saveResult   *models.SaveResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model that classifies ref on start. A nil saver hides the save action.
func NewModel(ctx context.Context, runner Runner, ref string, emotions []string, saver Saver) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Classified tracks"
	l.SetShowHelp(false)

	return Model{
		ctx:          ctx,
		view:         ClassifyView,
		runner:       runner,
		saver:        saver,
		ref:          ref,
		emotions:     emotions,
		spinner:      s,
		trackList:    l,
		progressChan: make(chan tasks.ProgressUpdate, 32),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Result returns the classification result, including the partial result of an aggregate batch failure.
func (m Model) Result() *models.ClassifyResult { return m.result }

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Init starts the classification run and begins listening for progress.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startClassify(), m.waitForProgress())
}

// startClassify runs the classifier inside a command and closes the progress channel when it returns.
func (m Model) startClassify() tea.Cmd {
	runner, ch := m.runner, m.progressChan
	ctx, ref, emotions := m.ctx, m.ref, m.emotions
	return func() tea.Msg {
		defer close(ch)
		if runner == nil {
			return classifyCompleteMsg(nil, fmt.Errorf("no classifier configured"))
		}
		result, err := runner.Run(ctx, ch, ref, emotions)
		return classifyCompleteMsg(result, err)
	}
}

// waitForProgress returns the next progress update, or nil once the run has finished.
func (m Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m Model) save() tea.Cmd {
	saver, ctx, result := m.saver, m.ctx, m.result
	return func() tea.Msg {
		res, err := saver(ctx, result)
		return saveCompleteMsg(res, err)
	}
}

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.trackList.SetSize(msg.Width, max(msg.Height-6, 5))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case ResultView:
		if m.trackList.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.save) && m.saver != nil && m.result != nil:
			m.view = ConfirmSaveView
			return m, nil
		}
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	case ConfirmSaveView:
		switch {
		case key.Matches(msg, m.keys.yes):
			m.view = SavingView
			return m, tea.Batch(m.spinner.Tick, m.save())
		case key.Matches(msg, m.keys.no):
			m.view = ResultView
			return m, nil
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
	default:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if update.Phase == tasks.BatchDone {
			m.batchLog = append(m.batchLog, update.Message)
		}
		return m, m.waitForProgress()
	case MsgClassifyComplete:
		outcome := msg.data.(classifyOutcome)
		m.view = ResultView
		m.result = outcome.result
		if outcome.err != nil {
			var failure *tasks.AggregateBatchFailure
			if errors.As(outcome.err, &failure) && failure.Result != nil {
				m.result = failure.Result
				m.warning = failure.Error()
			} else {
				m.err = outcome.err
			}
		}
		if m.result != nil {
			m.trackList.SetItems(trackItems(m.result.Merged))
		}
		return m, nil
	case MsgSaveComplete:
		outcome := msg.data.(saveOutcome)
		m.view = SavedView
		m.saveResult = outcome.result
		m.err = outcome.err
		return m, nil
	}
	return m, nil
}

// View renders the current view.
func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case ClassifyView:
		b.WriteString(m.classifyView())
	case ResultView:
		b.WriteString(m.resultView())
	case ConfirmSaveView:
		b.WriteString(m.confirmView())
	case SavingView:
		b.WriteString(fmt.Sprintf("%s Creating playlists...\n", m.spinner.View()))
	case SavedView:
		b.WriteString(m.savedView())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) classifyView() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Classifying " + m.ref))
	b.WriteString("\n")
	for _, line := range m.batchLog {
		b.WriteString(line)
		b.WriteString("\n")
	}
	msg := m.progress.Message
	if msg == "" {
		msg = "Starting..."
	}
	b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), msg))
	return b.String()
}

func (m Model) resultView() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}
	if m.result == nil {
		return "No result\n"
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("Classified %d tracks in %d batches", m.result.TotalSongs, m.result.TotalBatches)))
	b.WriteString("\n")
	if m.warning != "" {
		b.WriteString(styles.warn.Render("Warning: " + m.warning))
		b.WriteString("\n")
	}
	for _, label := range m.result.Emotions {
		stat := m.result.EmotionStats[label]
		b.WriteString(fmt.Sprintf("%s %s %d (%.2f%%)\n", styles.label.Render(label), styles.Bar(stat.Percentage, barWidth), stat.Count, stat.Percentage))
	}
	b.WriteString("\n")
	b.WriteString(m.trackList.View())
	if m.saver != nil {
		b.WriteString("\n")
		b.WriteString(styles.help.Render("press s to save one playlist per label"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) confirmView() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Save playlists"))
	b.WriteString("\n")
	for _, label := range m.result.Emotions {
		b.WriteString(fmt.Sprintf("  %s: %d tracks\n", label, len(m.result.GroupedTracks[label])))
	}
	b.WriteString("\nCreate these playlists? (y/n)\n")
	return b.String()
}

func (m Model) savedView() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render("Save failed: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}
	if m.saveResult == nil {
		return "Nothing saved\n"
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("Created %d playlists", len(m.saveResult.CreatedPlaylists))))
	b.WriteString("\n")
	for _, p := range m.saveResult.CreatedPlaylists {
		b.WriteString(fmt.Sprintf("  %s: %s (%d tracks) %s\n", p.Emotion, p.PlaylistName, p.AddedTracks, p.PlaylistURL))
	}
	for _, s := range m.saveResult.Skipped {
		b.WriteString(styles.warn.Render(fmt.Sprintf("  skipped %s: %s", s.Emotion, s.Reason)))
		b.WriteString("\n")
	}
	return b.String()
}
