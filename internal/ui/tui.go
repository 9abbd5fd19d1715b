package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// recentProblems is how many failing files the TUI lists under the bar.
const recentProblems = 3

// TUIRenderer draws library progress with bubbletea. The model is driven
// only by messages; the tracker supplies ETA and the stored problem lists.
type TUIRenderer struct {
	cfg     Config
	tracker *ProgressTracker
	model   *libraryModel

	mu      sync.Mutex
	program *tea.Program
	stop    context.CancelFunc
	exited  chan struct{}
}

var _ Renderer = (*TUIRenderer)(nil)

// NewTUIRenderer creates a TUI renderer. It fails for non-TTY output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newLibraryModel(cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{
		cfg:     cfg,
		tracker: NewProgressTracker(),
		model:   model,
		exited:  make(chan struct{}),
	}, nil
}

// Start launches the program in the background. Calling it twice is a no-op.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		return nil
	}

	ctx, r.stop = context.WithCancel(ctx)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)

	go func(p *tea.Program) {
		defer close(r.exited)
		_, _ = p.Run()
	}(r.program)
	return nil
}

// SetStage moves the display to stage.
func (r *TUIRenderer) SetStage(stage Stage) {
	r.tracker.SetStage(stage)
	r.send(stageMsg(stage))
}

// Report implements songs.ProgressReporter.
func (r *TUIRenderer) Report(fraction float64) {
	r.tracker.Report(fraction)
	st := r.tracker.Stats()
	r.send(fractionMsg{value: st.Progress, done: st.Done, eta: st.ETA})
}

// AddError records a failing file.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
	r.send(problemMsg(event))
}

// Complete replaces the progress view with the summary and ends the program.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.SetStage(StageComplete)
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop ends the program and waits briefly for it to restore the terminal.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p, stop := r.program, r.stop
	r.mu.Unlock()
	if p == nil {
		return nil
	}

	p.Quit()
	select {
	case <-r.exited:
	case <-time.After(2 * time.Second):
	}
	stop()
	return nil
}

type stageMsg Stage

type problemMsg ErrorEvent

type completeMsg CompletionStats

type fractionMsg struct {
	value float64
	done  bool
	eta   time.Duration
}

// libraryModel is the bubbletea model behind TUIRenderer.
type libraryModel struct {
	title  string
	width  int
	styles Styles

	stage    Stage
	fraction fractionMsg
	warnings int
	errors   int
	recent   []ErrorEvent // newest last, at most recentProblems

	quitting bool
	summary  *CompletionStats

	spinner     spinner.Model
	progressBar progress.Model
}

func newLibraryModel(title string) *libraryModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &libraryModel{
		title:   title,
		width:   80,
		styles:  DefaultStyles(),
		stage:   StageParsing,
		spinner: s,
		progressBar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
	}
}

// Init implements tea.Model.
func (m *libraryModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *libraryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if k := msg.String(); k == "q" || k == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-20, 20)

	case stageMsg:
		m.stage = Stage(msg)
		m.fraction = fractionMsg{}

	case fractionMsg:
		m.fraction = msg

	case problemMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		m.recent = append(m.recent, ErrorEvent(msg))
		if len(m.recent) > recentProblems {
			m.recent = m.recent[len(m.recent)-recentProblems:]
		}

	case completeMsg:
		stats := CompletionStats(msg)
		m.summary = &stats
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *libraryModel) View() string {
	switch {
	case m.quitting:
		return "Cancelled.\n"
	case m.summary != nil:
		return m.viewSummary()
	}

	header := "songbook"
	if m.title != "" {
		header += " • " + m.title
	}
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(header) + "\n")
	b.WriteString(m.viewStages() + "\n")
	b.WriteString(m.viewBar() + "\n")
	for _, p := range m.recent {
		b.WriteString(m.viewProblem(p) + "\n")
	}
	b.WriteString(m.viewFooter() + "\n")
	return b.String()
}

var stageNames = [...]struct {
	stage Stage
	label string
}{
	{StageParsing, "Parse"},
	{StageLoading, "Load"},
	{StageSyncing, "Sync"},
}

func (m *libraryModel) viewStages() string {
	parts := make([]string, 0, len(stageNames))
	for _, s := range stageNames {
		finished := s.stage < m.stage || (s.stage == m.stage && m.fraction.done)
		switch {
		case finished:
			parts = append(parts, m.styles.Success.Render("● "+s.label))
		case s.stage == m.stage:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.label))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.label))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *libraryModel) viewBar() string {
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", m.fraction.value*100))
	line := m.progressBar.ViewAs(m.fraction.value) + "  " + pct
	if m.fraction.eta > 0 && !m.fraction.done {
		line += m.styles.Label.Render("  ETA " + humanDuration(m.fraction.eta))
	}
	return line
}

func (m *libraryModel) viewProblem(p ErrorEvent) string {
	style, mark := m.styles.Error, "✗"
	if p.IsWarn {
		style, mark = m.styles.Warning, "⚠"
	}
	text := mark + " "
	if p.Path != "" {
		text += filepath.Base(p.Path) + ": "
	}
	if p.Err != nil {
		text += p.Err.Error()
	}
	return style.Render(text)
}

func (m *libraryModel) viewFooter() string {
	var parts []string
	if m.warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.warnings)))
	}
	if m.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.errors)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *libraryModel) viewSummary() string {
	body := m.styles.Success.Render("✓ " + completionLine(*m.summary))
	if m.summary.Failed > 0 {
		body += "\n" + m.styles.Error.Render(fmt.Sprintf("✗ %d files could not be read", m.summary.Failed))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorLime)).
		Padding(0, 1).
		Width(max(m.width-4, 40)).
		Render(body) + "\n"
}

// humanDuration renders d as "45s", "2m 5s" or "1h 30m".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, mins, secs := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, mins)
	case mins > 0 && secs > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm", mins)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
