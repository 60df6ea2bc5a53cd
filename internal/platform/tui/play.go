// Package tui is the terminal play surface: a Bubble Tea model driven by
// the session engine's events, plus SSH serving via Wish.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/score"
	"github.com/vovakirdan/decodey/internal/session"
)

// Engine bundles the session components the play surface drives.
type Engine struct {
	Store       *session.Store
	Coordinator *session.Coordinator
	Verifier    *session.Verifier
	Queue       *score.Queue
	Username    string
}

// requestTimeout bounds every engine call issued from the UI.
const requestTimeout = 20 * time.Second

type playMode int

const (
	modeLoading playMode = iota
	modePlaying
	modeActivePrompt
	modeDailyDone
	modeFinished
)

// Messages produced by engine commands and the event subscription.
type (
	initDoneMsg struct {
		res session.InitResult
		err error
	}
	engineEventMsg struct{ evt session.Event }
	guessDoneMsg   struct{ err error }
	hintDoneMsg    struct{ err error }
	verifyDoneMsg  struct {
		res session.VerifyResult
		err error
	}
	scoreDoneMsg struct {
		res score.SubmitResult
		err error
	}
	clockTickMsg time.Time
)

// PlayModel is the Bubble Tea model for one decodey session.
type PlayModel struct {
	engine Engine
	opts   session.InitOptions
	sub    *session.Subscription

	snap      session.Snapshot
	mode      playMode
	selected  string
	status    string
	lastError string

	activeGames *api.ActiveGames
	completion  *api.DailyCompletionData
	winData     *api.WinData
	scoreNote   string

	startedAt time.Time
	elapsed   time.Duration

	keys     PlayKeyMap
	help     help.Model
	width    int
	height   int
	quitting bool
}

// NewPlayModel creates the play model. Initialization runs on Init.
func NewPlayModel(engine Engine, opts session.InitOptions) PlayModel {
	h := help.New()
	h.ShowAll = false
	return PlayModel{
		engine: engine,
		opts:   opts,
		sub:    engine.Store.Hub().Subscribe(64),
		snap:   engine.Store.Snapshot(),
		mode:   modeLoading,
		keys:   DefaultPlayKeyMap(),
		help:   h,
		width:  80,
		height: 24,
	}
}

// Init starts initialization and the event pump.
func (m PlayModel) Init() tea.Cmd {
	return tea.Batch(m.initCmd(), m.listenCmd(), clockCmd())
}

func (m PlayModel) initCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := m.engine.Coordinator.Initialize(ctx, m.opts)
		return initDoneMsg{res: res, err: err}
	}
}

func (m PlayModel) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := m.engine.Coordinator.Resume(ctx)
		return initDoneMsg{res: res, err: err}
	}
}

func (m PlayModel) abandonAndStartCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		m.engine.Store.AbandonGame(ctx)
		opts := m.opts
		opts.CustomRequested = true
		res, err := m.engine.Coordinator.Initialize(ctx, opts)
		return initDoneMsg{res: res, err: err}
	}
}

func (m PlayModel) listenCmd() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.sub.Events()
		if !ok {
			return nil
		}
		return engineEventMsg{evt: evt}
	}
}

func (m PlayModel) guessCmd(encrypted, guess string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return guessDoneMsg{err: m.engine.Store.SubmitGuess(ctx, encrypted, guess)}
	}
}

func (m PlayModel) hintCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return hintDoneMsg{err: m.engine.Store.RequestHint(ctx)}
	}
}

func (m PlayModel) verifyCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := m.engine.Verifier.VerifyWin(ctx)
		return verifyDoneMsg{res: res, err: err}
	}
}

func (m PlayModel) submitScoreCmd(winData api.WinData) tea.Cmd {
	snap := m.engine.Store.Snapshot()
	elapsed := int(m.elapsed.Seconds())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		payload := api.ScorePayload{
			GameID:       snap.GameID,
			Score:        winData.Score,
			Mistakes:     snap.Mistakes,
			TimeTaken:    elapsed,
			Difficulty:   string(snap.Difficulty),
			HardcoreMode: snap.HardcoreMode,
			IsDaily:      snap.IsDaily,
			QueuedAt:     time.Now().Unix(),
		}
		res, err := m.engine.Queue.Submit(ctx, payload)
		return scoreDoneMsg{res: res, err: err}
	}
}

func clockCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

// Update handles messages.
func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case clockTickMsg:
		if m.mode == modePlaying && !m.startedAt.IsZero() {
			m.elapsed = time.Since(m.startedAt)
		}
		return m, clockCmd()

	case initDoneMsg:
		return m.handleInitDone(msg)

	case engineEventMsg:
		return m.handleEngineEvent(msg.evt)

	case guessDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else {
			m.lastError = ""
		}
		return m, nil

	case hintDoneMsg:
		return m.handleHintDone(msg)

	case verifyDoneMsg:
		return m.handleVerifyDone(msg)

	case scoreDoneMsg:
		return m.handleScoreDone(msg)
	}

	return m, nil
}

func (m PlayModel) handleInitDone(msg initDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.lastError = msg.err.Error()
		m.mode = modePlaying
		return m, nil
	}

	switch msg.res.Outcome {
	case session.OutcomeActiveGameFound:
		m.mode = modeActivePrompt
		m.activeGames = msg.res.ActiveGames
	case session.OutcomeAlreadyCompleted:
		m.mode = modeDailyDone
		m.completion = msg.res.Completion
	default:
		m.mode = modePlaying
		m.snap = m.engine.Store.Snapshot()
		m.startedAt = time.Now()
		m.elapsed = 0
	}
	return m, nil
}

func (m PlayModel) handleEngineEvent(evt session.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenCmd()}

	switch evt := evt.(type) {
	case session.StateChangedEvent:
		m.snap = evt.Snapshot
		if m.snap.HasLost {
			m.mode = modeFinished
		}
	case session.WinTentativeEvent:
		m.status = "verifying solution..."
		cmds = append(cmds, m.verifyCmd())
	case session.WinConfirmedEvent:
		wd := evt.WinData
		m.winData = &wd
		m.mode = modeFinished
		cmds = append(cmds, m.submitScoreCmd(wd))
	case session.GameLostEvent:
		m.mode = modeFinished
	}

	return m, tea.Batch(cmds...)
}

func (m PlayModel) handleHintDone(msg hintDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.lastError = ""
	case errors.Is(msg.err, session.ErrHintBudget):
		m.lastError = "hint refused: it could cost you the game"
	case errors.Is(msg.err, session.ErrHintInFlight):
		// Ignore; one is already running.
	default:
		m.lastError = msg.err.Error()
	}
	return m, nil
}

func (m PlayModel) handleVerifyDone(msg verifyDoneMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	if msg.err != nil {
		m.lastError = msg.err.Error()
		return m, nil
	}
	// Confirmation arrives through the WinConfirmedEvent; an unverified
	// result means either loss-override or a retry later.
	m.snap = m.engine.Store.Snapshot()
	return m, nil
}

func (m PlayModel) handleScoreDone(msg scoreDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err != nil:
		m.scoreNote = "score could not be saved: " + msg.err.Error()
	case msg.res.Delivered:
		m.scoreNote = "score recorded"
	case msg.res.AuthRequired:
		m.scoreNote = "score queued — log in to submit it"
	case msg.res.Queued:
		m.scoreNote = "score queued for delivery"
	}
	return m, nil
}

func (m PlayModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.sub.Close()
		return m, tea.Quit
	}

	switch m.mode {
	case modeActivePrompt:
		switch {
		case key.Matches(msg, m.keys.Continue):
			m.mode = modeLoading
			return m, m.resumeCmd()
		case key.Matches(msg, m.keys.NewGame):
			m.mode = modeLoading
			return m, m.abandonAndStartCmd()
		}
		return m, nil

	case modeDailyDone, modeFinished:
		if msg.String() == "q" || key.Matches(msg, m.keys.Cancel) {
			m.quitting = true
			m.sub.Close()
			return m, tea.Quit
		}
		return m, nil

	case modePlaying:
		return m.handlePlayKey(msg)
	}

	return m, nil
}

func (m PlayModel) handlePlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Hint):
		return m, m.hintCmd()
	case key.Matches(msg, m.keys.Cancel):
		m.selected = ""
		m.lastError = ""
		return m, nil
	}

	letter := keyLetter(msg)
	if letter == "" {
		return m, nil
	}

	if m.selected == "" {
		if !m.selectable(letter) {
			return m, nil
		}
		m.selected = letter
		return m, nil
	}

	encrypted := m.selected
	m.selected = ""
	return m, m.guessCmd(encrypted, letter)
}

// selectable reports whether the letter appears in the encrypted text and
// has not been cracked yet.
func (m PlayModel) selectable(letter string) bool {
	if lo.Contains(m.snap.CorrectlyGuessed, letter) {
		return false
	}
	return strings.Contains(m.snap.Encrypted, letter)
}

func keyLetter(msg tea.KeyMsg) string {
	s := msg.String()
	if len(s) != 1 {
		return ""
	}
	r := rune(s[0])
	if !unicode.IsLetter(r) {
		return ""
	}
	return strings.ToUpper(s)
}

// View renders the current state.
func (m PlayModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.mode {
	case modeLoading:
		return m.viewLoading()
	case modeActivePrompt:
		return m.viewActivePrompt()
	case modeDailyDone:
		return m.viewDailyDone()
	default:
		return m.viewBoard()
	}
}

func (m PlayModel) viewLoading() string {
	return "\n" + centerText(statusStyle.Render("contacting server..."), m.width)
}

func (m PlayModel) viewActivePrompt() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("GAME IN PROGRESS"))
	b.WriteString("\n\n")
	if m.activeGames != nil && m.activeGames.GameStats != nil {
		gs := m.activeGames.GameStats
		b.WriteString(fmt.Sprintf("Difficulty: %s\n", gs.Difficulty))
		b.WriteString(fmt.Sprintf("Mistakes:   %d/%d\n", gs.Mistakes, gs.MaxMistakes))
		b.WriteString(fmt.Sprintf("Progress:   %.0f%%\n", gs.CompletionPercentage))
	}
	b.WriteString("\n")
	b.WriteString("You have an unfinished game. ")
	b.WriteString("(c)ontinue or start a (n)ew one?\n")
	return boxStyle.Render(b.String())
}

func (m PlayModel) viewDailyDone() string {
	var b strings.Builder
	b.WriteString(winStyle.Render("DAILY CHALLENGE COMPLETE"))
	b.WriteString("\n\n")
	if m.completion != nil {
		b.WriteString(fmt.Sprintf("Score: %d\n", m.completion.Score))
		if m.completion.Rank > 0 {
			b.WriteString(fmt.Sprintf("Rank:  #%d\n", m.completion.Rank))
		}
	}
	b.WriteString("\nCome back tomorrow. Press q to exit.\n")
	return boxStyle.Render(b.String())
}

func (m PlayModel) viewBoard() string {
	var b strings.Builder

	title := "DECODEY"
	if m.snap.IsDaily {
		title = "DECODEY — DAILY CHALLENGE"
	}
	if m.snap.HardcoreMode {
		title += " [HARDCORE]"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.renderTexts())
	b.WriteString("\n")
	b.WriteString(m.renderAlphabet())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	if m.mode == modeFinished {
		b.WriteString("\n\n")
		b.WriteString(m.renderOutcome())
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// renderTexts shows the encrypted paragraph with the partially decrypted
// line underneath, wrapped to the terminal width.
func (m PlayModel) renderTexts() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	enc := []rune(m.snap.Encrypted)
	dis := []rune(m.snap.Display)
	if len(dis) != len(enc) {
		// Never render mismatched texts.
		return errorStyle.Render("waiting for a consistent board...")
	}

	var b strings.Builder
	for start := 0; start < len(enc); start += width {
		end := start + width
		if end > len(enc) {
			end = len(enc)
		}
		b.WriteString(encryptedStyle.Render(string(enc[start:end])))
		b.WriteString("\n")
		b.WriteString(displayStyle.Render(string(dis[start:end])))
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderAlphabet shows every encrypted letter with its frequency, marking
// cracked letters and the current selection.
func (m PlayModel) renderAlphabet() string {
	letters := make([]string, 0, len(m.snap.LetterFrequency))
	for letter := range m.snap.LetterFrequency {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	if len(letters) == 0 {
		return ""
	}

	cells := make([]string, 0, len(letters))
	for _, letter := range letters {
		label := fmt.Sprintf("%s:%d", letter, m.snap.LetterFrequency[letter])
		switch {
		case letter == m.selected:
			cells = append(cells, selectedStyle.Render(label))
		case lo.Contains(m.snap.CorrectlyGuessed, letter):
			cells = append(cells, guessedStyle.Render(label))
		default:
			cells = append(cells, label)
		}
	}
	return boxStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(cells, "  ")))
}

func (m PlayModel) renderStatusBar() string {
	var parts []string

	mistakes := fmt.Sprintf("mistakes %d/%d", m.snap.Mistakes, m.snap.MaxMistakes)
	if m.snap.Mistakes >= m.snap.MaxMistakes-1 && m.snap.MaxMistakes > 0 {
		mistakes = mistakeStyle.Render(mistakes)
	}
	parts = append(parts, mistakes)

	if m.snap.PendingHints > 0 {
		parts = append(parts, fmt.Sprintf("hint pending (%d)", m.snap.PendingHints))
	}
	parts = append(parts, fmt.Sprintf("%02d:%02d", int(m.elapsed.Minutes()), int(m.elapsed.Seconds())%60))
	if m.engine.Username != "" {
		parts = append(parts, m.engine.Username)
	}
	if m.selected != "" {
		parts = append(parts, selectedStyle.Render("guess for "+m.selected+"?"))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	line := statusStyle.Render(strings.Join(parts, "  |  "))
	if m.lastError != "" {
		line += "\n" + errorStyle.Render(m.lastError)
	}
	return line
}

func (m PlayModel) renderOutcome() string {
	if m.snap.HasLost {
		return lossStyle.Render("GAME OVER") + "\n" +
			statusStyle.Render("The cipher beat you this time. Press q to exit.")
	}

	var b strings.Builder
	b.WriteString(winStyle.Render("SOLVED!"))
	b.WriteString("\n")
	if m.winData != nil {
		b.WriteString(fmt.Sprintf("Score: %d", m.winData.Score))
		if m.winData.Rating != "" {
			b.WriteString("  Rating: " + m.winData.Rating)
		}
		if m.winData.StreakBonus > 0 {
			b.WriteString(fmt.Sprintf("  Streak bonus: +%d", m.winData.StreakBonus))
		}
		b.WriteString("\n")
		if attr := m.winData.Attribution; attr != nil && attr.MajorAttribution != "" {
			b.WriteString(statusStyle.Render("— " + attr.MajorAttribution))
			if attr.MinorAttribution != "" {
				b.WriteString(statusStyle.Render(", " + attr.MinorAttribution))
			}
			b.WriteString("\n")
		}
	}
	if m.scoreNote != "" {
		b.WriteString(statusStyle.Render(m.scoreNote))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("Press q to exit."))
	return b.String()
}

// RunPlay starts the Bubble Tea program for one play session.
func RunPlay(engine Engine, opts session.InitOptions) error {
	p := tea.NewProgram(
		NewPlayModel(engine, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
