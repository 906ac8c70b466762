package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"companion/internal/chunker"
	"companion/internal/domain"
	"companion/internal/service"
)

// StudyPort is the TUI-facing subset of the simplify service.
type StudyPort interface {
	Explain(ctx context.Context, text string) string
	Quiz(ctx context.Context, text string) service.Quiz
}

type page struct {
	title string
	body  string
}

type explainMsg struct{ terms string }

type quizMsg struct{ quiz service.Quiz }

// Model is the Bubble Tea model for browsing a simplification result.
type Model struct {
	port      StudyPort
	input     textinput.Model
	viewport  viewport.Model
	pages     []page
	cursor    int
	notes     string
	status    string
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(study StudyPort, res domain.Result) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a word and press Enter to highlight it"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		port:     study,
		input:    ti,
		viewport: vp,
		pages:    pagesFor(res),
		status:   "tab/shift+tab: switch page  ctrl+e: explain terms  ctrl+q: quiz  ctrl+c: quit",
	}
}

func pagesFor(res domain.Result) []page {
	if !res.Chunked {
		return []page{{title: "Simplified", body: res.Combined}}
	}
	pages := []page{{title: "Overall summary", body: res.Overall}, {title: "All parts", body: res.Combined}}
	for i, p := range res.Parts {
		pages = append(pages, page{title: fmt.Sprintf("Part %d/%d", i+1, len(res.Parts)), body: p})
	}
	return pages
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1                                    // header
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentPage())
		return m, nil
	case explainMsg:
		m.busy = false
		m.notes = "Key terms\n\n" + msg.terms
		m.status = "Explained terms for " + m.pages[m.cursor].title
		m.viewport.SetContent(m.renderCurrentPage())
		return m, nil
	case quizMsg:
		m.busy = false
		m.notes = "Questions\n\n" + msg.quiz.Questions
		if msg.quiz.Answers != "" {
			m.notes += "\n\nAnswers\n\n" + msg.quiz.Answers
		}
		m.status = "Quiz for " + m.pages[m.cursor].title
		m.viewport.SetContent(m.renderCurrentPage())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			m.lastQuery = strings.TrimSpace(m.input.Value())
			m.viewport.SetContent(m.renderCurrentPage())
			return m, nil
		case "tab":
			m.cursor = (m.cursor + 1) % len(m.pages)
			m.notes = ""
			m.viewport.SetContent(m.renderCurrentPage())
			return m, nil
		case "shift+tab":
			m.cursor = (m.cursor - 1 + len(m.pages)) % len(m.pages)
			m.notes = ""
			m.viewport.SetContent(m.renderCurrentPage())
			return m, nil
		case "ctrl+e", "ctrl+q":
			if m.busy || m.port == nil {
				return m, nil
			}
			m.busy = true
			m.status = "Working..."
			return m, m.studyCmd(msg.String() == "ctrl+e")
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) studyCmd(explain bool) tea.Cmd {
	text := m.pages[m.cursor].body
	port := m.port
	return func() tea.Msg {
		if explain {
			return explainMsg{terms: port.Explain(context.Background(), text)}
		}
		return quizMsg{quiz: port.Quiz(context.Background(), text)}
	}
}

// View renders the TUI layout and current page.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Reading Companion  " + m.pages[m.cursor].title)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderCurrentPage() string {
	p := m.pages[m.cursor]
	if strings.TrimSpace(p.body) == "" {
		return "Nothing to show."
	}
	out := highlightBestSentence(p.body, m.lastQuery)
	if m.notes != "" {
		out += "\n\n" + studyStyle.Render(m.notes)
	}
	return out
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	studyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightBestSentence marks the sentence sharing the most words with query.
// Line structure (headers, bullets) is kept; sentences are matched per line.
func highlightBestSentence(text, query string) string {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 || strings.TrimSpace(text) == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	sentences := make([][]string, len(lines))
	bestLine, bestIdx, bestScore := -1, -1, 0
	for li, line := range lines {
		sentences[li] = chunker.SegmentWithMin(line, 0)
		for i, s := range sentences[li] {
			if score := tokenOverlapScore(qTokens, s); score > bestScore {
				bestLine, bestIdx, bestScore = li, i, score
			}
		}
	}
	if bestLine < 0 {
		return text
	}
	sents := sentences[bestLine]
	sents[bestIdx] = highlightStyle.Render(sents[bestIdx])
	lines[bestLine] = strings.Join(sents, " ")
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
