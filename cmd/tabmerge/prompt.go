package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/tabmerge/internal/core"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	answeredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// =============================================================================
// Questions
// =============================================================================

// question is the model for one open request. Answered reports true once
// the user has chosen, cancelled included.
type question interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (question, tea.Cmd)
	View() string
	Answered() (core.Answer, bool)
	Summary() string
}

func newQuestion(req core.Request, dir string) question {
	switch r := req.(type) {
	case core.DecimalRequest:
		return newNotationModel(r)
	case core.HeaderRequest:
		return newHeaderModel(r)
	case core.TruncateRequest:
		return newTruncateModel(r)
	case core.OutputRequest:
		return newOutputModel(r, dir)
	}
	return cancelled{}
}

// cancelled answers requests the terminal has no model for.
type cancelled struct{}

func (cancelled) Init() tea.Cmd                        { return nil }
func (c cancelled) Update(tea.Msg) (question, tea.Cmd) { return c, nil }
func (cancelled) View() string                         { return "" }
func (cancelled) Answered() (core.Answer, bool)        { return core.Answer{Cancel: true}, true }
func (cancelled) Summary() string                      { return "cancelled" }

// choice is one selectable line. key moves the cursor to it directly.
type choice struct {
	key    string
	label  string
	answer core.Answer
}

// choiceList is the cursor list shared by the fixed-choice questions.
// Typing a choice key moves the cursor; enter confirms.
type choiceList struct {
	choices []choice
	cursor  int
	picked  *core.Answer
}

func (l choiceList) update(msg tea.Msg) choiceList {
	key, ok := msg.(tea.KeyMsg)
	if !ok || l.picked != nil {
		return l
	}
	switch key.String() {
	case "up", "k", "shift+tab":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j", "tab":
		if l.cursor < len(l.choices)-1 {
			l.cursor++
		}
	case "enter", "ctrl+j":
		a := l.choices[l.cursor].answer
		l.picked = &a
	case "q", "esc", "ctrl+c":
		l.picked = &core.Answer{Cancel: true}
	default:
		for i, c := range l.choices {
			if strings.EqualFold(key.String(), c.key) {
				l.cursor = i
				break
			}
		}
	}
	return l
}

func (l choiceList) view() string {
	var b strings.Builder
	for i, c := range l.choices {
		line := fmt.Sprintf("[%s] %s", c.key, c.label)
		if i == l.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (l choiceList) answered() (core.Answer, bool) {
	if l.picked == nil {
		return core.Answer{}, false
	}
	return *l.picked, true
}

func (l choiceList) summary() string {
	if l.picked != nil && l.picked.Cancel || len(l.choices) == 0 {
		return "cancelled"
	}
	return l.choices[l.cursor].label
}

const choiceHint = "type a key or use arrows, enter to confirm, q to cancel"

// notationModel asks which decimal notation the output uses.
type notationModel struct {
	req  core.DecimalRequest
	list choiceList
}

func newNotationModel(r core.DecimalRequest) notationModel {
	l := choiceList{choices: []choice{
		{key: "d", label: "dot (1.5)", answer: core.Answer{Notation: core.NotationDot}},
		{key: "c", label: "comma (1,5)", answer: core.Answer{Notation: core.NotationComma}},
	}}
	if r.Suggested == core.NotationComma {
		l.cursor = 1
	}
	return notationModel{req: r, list: l}
}

func (m notationModel) Init() tea.Cmd { return nil }

func (m notationModel) Update(msg tea.Msg) (question, tea.Cmd) {
	m.list = m.list.update(msg)
	return m, nil
}

func (m notationModel) View() string {
	return titleStyle.Render("Decimal notation") + "\n" +
		fmt.Sprintf("Decimal numbers found: %s with dot, %s with comma (precision %d).\n",
			humanize.Comma(int64(m.req.DotCount)), humanize.Comma(int64(m.req.CommaCount)), m.req.Precision) +
		m.list.view() + hintStyle.Render(choiceHint)
}

func (m notationModel) Answered() (core.Answer, bool) { return m.list.answered() }
func (m notationModel) Summary() string               { return "Decimal notation: " + m.list.summary() }

// headerModel asks whose header labels the merged table keeps.
type headerModel struct {
	req  core.HeaderRequest
	list choiceList
}

func newHeaderModel(r core.HeaderRequest) headerModel {
	var l choiceList
	for _, c := range r.Candidates {
		l.choices = append(l.choices, choice{
			key:    strconv.Itoa(c.Index),
			label:  c.Label + ": " + strings.Join(c.Headers, ", "),
			answer: core.Answer{HeaderIndex: c.Index},
		})
	}
	if len(l.choices) == 0 {
		l.picked = &core.Answer{Cancel: true}
	}
	return headerModel{req: r, list: l}
}

func (m headerModel) Init() tea.Cmd { return nil }

func (m headerModel) Update(msg tea.Msg) (question, tea.Cmd) {
	m.list = m.list.update(msg)
	return m, nil
}

func (m headerModel) View() string {
	return titleStyle.Render("Header labels") + "\n" +
		"Sources have different header labels. Columns are matched by position.\n" +
		m.list.view() + hintStyle.Render(choiceHint)
}

func (m headerModel) Answered() (core.Answer, bool) { return m.list.answered() }
func (m headerModel) Summary() string               { return "Header labels from " + m.list.summary() }

// truncateModel asks whether rows past the format limit may be dropped.
// The cursor starts on no.
type truncateModel struct {
	req  core.TruncateRequest
	list choiceList
}

func newTruncateModel(r core.TruncateRequest) truncateModel {
	drop := humanize.Comma(int64(r.Rows - r.Limit))
	return truncateModel{req: r, list: choiceList{
		choices: []choice{
			{key: "y", label: "yes, drop the last " + drop + " rows", answer: core.Answer{Confirm: true}},
			{key: "n", label: "no, stop the merge", answer: core.Answer{Confirm: false}},
		},
		cursor: 1,
	}}
}

func (m truncateModel) Init() tea.Cmd { return nil }

func (m truncateModel) Update(msg tea.Msg) (question, tea.Cmd) {
	m.list = m.list.update(msg)
	return m, nil
}

func (m truncateModel) View() string {
	return titleStyle.Render("Row limit") + "\n" +
		fmt.Sprintf("The merged table has %s rows; %s holds at most %s.\n",
			humanize.Comma(int64(m.req.Rows)), strings.ToUpper(string(m.req.Format)), humanize.Comma(int64(m.req.Limit))) +
		m.list.view() + hintStyle.Render(choiceHint)
}

func (m truncateModel) Answered() (core.Answer, bool) { return m.list.answered() }
func (m truncateModel) Summary() string               { return "Truncate: " + m.list.summary() }

// outputModel asks for the output path. Empty input takes the default name;
// relative paths resolve against dir.
type outputModel struct {
	req    core.OutputRequest
	dir    string
	input  textinput.Model
	picked *core.Answer
}

func newOutputModel(r core.OutputRequest, dir string) outputModel {
	in := textinput.New()
	in.Placeholder = r.DefaultName
	in.Prompt = "Save as: "
	in.CharLimit = 4096
	in.Width = 60
	in.Focus()
	return outputModel{req: r, dir: dir, input: in}
}

func (m outputModel) Init() tea.Cmd { return textinput.Blink }

func (m outputModel) Update(msg tea.Msg) (question, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "ctrl+j":
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				path = m.req.DefaultName
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(m.dir, path)
			}
			m.picked = &core.Answer{Path: path}
			m.input.Blur()
			return m, nil
		case "esc", "ctrl+c":
			m.picked = &core.Answer{Cancel: true}
			m.input.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m outputModel) View() string {
	return titleStyle.Render("Output file") + "\n" + m.input.View() + "\n" +
		hintStyle.Render("enter keeps "+m.req.DefaultName+", esc cancels")
}

func (m outputModel) Answered() (core.Answer, bool) {
	if m.picked == nil {
		return core.Answer{}, false
	}
	return *m.picked, true
}

func (m outputModel) Summary() string {
	if m.picked == nil || m.picked.Cancel {
		return "Output: cancelled"
	}
	return "Output: " + m.picked.Path
}

// =============================================================================
// Session
// =============================================================================

type askMsg struct{ prompt core.Prompt }

// inputClosedMsg reports that the input reader hit end of file.
type inputClosedMsg struct{}

type promptsDoneMsg struct{}

// session is the program model for one merge. Keys typed before a question
// opens are queued for it; once input has ended, a question the queue
// cannot answer is cancelled.
type session struct {
	dir     string
	current question
	prompt  core.Prompt
	active  bool
	pending []tea.KeyMsg
	closed  bool
	done    []string
}

func newSession(dir string) *session {
	return &session{dir: dir}
}

func (s *session) Init() tea.Cmd { return nil }

func (s *session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case askMsg:
		s.prompt = msg.prompt
		s.current = newQuestion(msg.prompt.Request, s.dir)
		s.active = true
		cmd := s.current.Init()
		return s, tea.Batch(cmd, s.drain())
	case tea.KeyMsg:
		s.pending = append(s.pending, msg)
		return s, s.drain()
	case inputClosedMsg:
		s.closed = true
		return s, s.drain()
	case promptsDoneMsg:
		return s, tea.Quit
	}
	if s.active {
		var cmd tea.Cmd
		s.current, cmd = s.current.Update(msg)
		return s, cmd
	}
	return s, nil
}

// drain feeds queued keys to the open question and replies once it is
// answered.
func (s *session) drain() tea.Cmd {
	var cmds []tea.Cmd
	for s.active && len(s.pending) > 0 {
		key := s.pending[0]
		s.pending = s.pending[1:]
		var cmd tea.Cmd
		s.current, cmd = s.current.Update(key)
		cmds = append(cmds, cmd)
		if a, ok := s.current.Answered(); ok {
			s.reply(a)
		}
	}
	if s.active {
		if a, ok := s.current.Answered(); ok {
			s.reply(a)
		} else if s.closed {
			s.reply(core.Answer{Cancel: true})
		}
	}
	return tea.Batch(cmds...)
}

func (s *session) reply(a core.Answer) {
	line := s.current.Summary()
	if a.Cancel {
		line = "cancelled"
	}
	s.done = append(s.done, line)
	s.active = false
	s.current = nil
	s.prompt.Reply(a)
}

func (s *session) View() string {
	var b strings.Builder
	for _, line := range s.done {
		b.WriteString(answeredStyle.Render(line) + "\n")
	}
	if s.active {
		b.WriteString(s.current.View() + "\n")
	}
	return b.String()
}

// =============================================================================
// Terminal
// =============================================================================

// terminal answers merge prompts with one bubbletea program per merge.
type terminal struct {
	in  io.Reader
	out io.Writer
	dir string // relative output paths resolve here
}

func newTerminal(in io.Reader, out io.Writer, dir string) *terminal {
	return &terminal{in: in, out: out, dir: dir}
}

// serve answers prompts until the channel closes. Prompts arriving after
// the program has stopped are cancelled.
func (t *terminal) serve(prompts <-chan core.Prompt) {
	in := t.input()
	p := tea.NewProgram(newSession(t.dir), tea.WithInput(in), tea.WithOutput(t.out))
	if r, ok := in.(*eofReader); ok {
		r.onEOF = func() { p.Send(inputClosedMsg{}) }
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if _, err := p.Run(); err != nil {
			slog.Debug("prompt program stopped", "error", err)
		}
	}()

	for {
		select {
		case pr, ok := <-prompts:
			if !ok {
				p.Send(promptsDoneMsg{})
				<-stopped
				return
			}
			p.Send(askMsg{prompt: pr})
		case <-stopped:
			for pr := range prompts {
				pr.Reply(core.Answer{Cancel: true})
			}
			return
		}
	}
}

// input returns the reader the program reads keys from. A terminal is
// passed through so the program can put it in raw mode; pipes and other
// readers report end of file to the session.
func (t *terminal) input() io.Reader {
	if f, ok := t.in.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return f
		}
	}
	return &eofReader{r: t.in}
}

// eofReader calls onEOF once input is exhausted. Bytes returned together
// with io.EOF are delivered first and the end reported on the next read, so
// the session sees every key before the close.
type eofReader struct {
	r     io.Reader
	onEOF func()
	eof   bool
	seen  bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	if e.eof {
		e.notify()
		return 0, io.EOF
	}
	n, err := e.r.Read(p)
	if err == io.EOF {
		if n > 0 {
			e.eof = true
			return n, nil
		}
		e.notify()
	}
	return n, err
}

func (e *eofReader) notify() {
	if e.seen {
		return
	}
	e.seen = true
	if e.onEOF != nil {
		e.onEOF()
	}
}
