package browsecmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/foliodocs/folio/pkg/vector"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type browseView int

const (
	viewOverview browseView = iota
	viewDocument
)

// browseIndex is the index snapshot the TUI starts from.
type browseIndex struct {
	Sources   []vector.SourceStat
	Chunks    int
	Dimension int
}

type documentDetail struct {
	stat    vector.SourceStat
	entries []vector.Entry
}

type browseModel struct {
	store       vector.Store
	index       browseIndex
	detail      *documentDetail
	view        browseView
	cursor      int
	entryCursor int
	width       int
	height      int
	loadErr     error
	keys        browseKeyMap
	help        help.Model
}

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	browseContextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	browseWarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("213")).Bold(true)
)

type browseKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter}, {k.Back, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:    key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:  key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter: key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:  key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type entriesLoadedMsg struct {
	stat    vector.SourceStat
	entries []vector.Entry
	err     error
}

func runBrowseTUI(ctx context.Context, store vector.Store, index browseIndex, source string) error {
	model := newBrowseModel(store, index)

	if source != "" {
		stat, ok := findSource(index.Sources, source)
		if !ok {
			return fmt.Errorf("source %q is not in the index", source)
		}

		entries, err := store.Entries(ctx, stat.DocumentID)
		if err != nil {
			return err
		}
		model.view = viewDocument
		model.detail = &documentDetail{stat: stat, entries: entries}
		for i, s := range index.Sources {
			if s.DocumentID == stat.DocumentID {
				model.cursor = i
			}
		}
	}

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newBrowseModel(store vector.Store, index browseIndex) browseModel {
	return browseModel{
		store: store,
		index: index,
		view:  viewOverview,
		keys:  defaultKeyMap(),
		help:  help.New(),
	}
}

func findSource(sources []vector.SourceStat, source string) (vector.SourceStat, bool) {
	for _, stat := range sources {
		if stat.Source == source || stat.DocumentID == source {
			return stat, true
		}
	}
	return vector.SourceStat{}, false
}

func (m browseModel) Init() bubbletea.Cmd {
	return nil
}

func (m browseModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case entriesLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.loadErr = nil
		m.detail = &documentDetail{stat: msg.stat, entries: msg.entries}
		m.entryCursor = 0
		m.view = viewDocument
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m browseModel) View() string {
	switch m.view {
	case viewDocument:
		return m.viewDocument()
	default:
		return m.viewOverview()
	}
}

func (m browseModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		if m.view == viewOverview {
			return m.openDocument()
		}
	case "h", "esc":
		if m.view == viewDocument {
			m.view = viewOverview
			return m, nil
		}
		// esc from the overview quits
		if msg.String() == "esc" {
			return m, bubbletea.Quit
		}
	}

	return m, nil
}

func (m browseModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	if m.view == viewOverview {
		if len(m.index.Sources) == 0 {
			return m, nil
		}
		m.cursor = clamp(m.cursor+delta, len(m.index.Sources)-1)
		return m, nil
	}

	if m.detail == nil || len(m.detail.entries) == 0 {
		return m, nil
	}
	m.entryCursor = clamp(m.entryCursor+delta, len(m.detail.entries)-1)
	return m, nil
}

func (m browseModel) openDocument() (bubbletea.Model, bubbletea.Cmd) {
	if len(m.index.Sources) == 0 {
		return m, nil
	}

	stat := m.index.Sources[m.cursor]
	return m, loadEntriesCmd(m.store, stat)
}

func loadEntriesCmd(store vector.Store, stat vector.SourceStat) bubbletea.Cmd {
	return func() bubbletea.Msg {
		entries, err := store.Entries(context.Background(), stat.DocumentID)
		return entriesLoadedMsg{stat: stat, entries: entries, err: err}
	}
}

func (m browseModel) viewOverview() string {
	headerLeft := browseTitleStyle.Render("folio browse")
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%d documents · %d chunks · %s",
		len(m.index.Sources), m.index.Chunks, dimensionLabel(m.index.Dimension)))
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, len(m.index.Sources)+8)
	lines = append(lines, header, renderRule(m.width), "")

	lines = append(lines, browseSectionStyle.Render("documents"), renderRule(m.width))
	lines = append(lines, browseMutedStyle.Render("  source                                              id            chunks"))

	maxVisible := m.listHeight(len(lines))
	start, end := visibleRange(len(m.index.Sources), m.cursor, maxVisible)
	for i := start; i < end; i++ {
		stat := m.index.Sources[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %-50s  %-12s %6d",
			cursor,
			truncateText(stat.Source, 50),
			truncateText(stat.DocumentID, 12),
			stat.Chunks,
		)

		if i == m.cursor {
			line = browseHighlightStyle.Render(line)
		}

		lines = append(lines, line)
	}

	if m.loadErr != nil {
		lines = append(lines, "", browseWarnStyle.Render("load failed: "+m.loadErr.Error()))
	}

	lines = append(lines, "", m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) viewDocument() string {
	if m.detail == nil {
		return browseMutedStyle.Render("no document selected")
	}

	headerLeft := browseTitleStyle.Render("folio browse › " + m.detail.stat.Source)
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%s · %d chunks", m.detail.stat.DocumentID, len(m.detail.entries)))
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, 20)
	lines = append(lines, header, renderRule(m.width), "")

	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	footerHeight := 2
	remaining := max(screenHeight-len(lines)-footerHeight, 8)
	gap := 3
	leftWidth := max((m.width-gap)/2, 30)
	rightWidth := m.width - gap - leftWidth
	if rightWidth < 24 {
		rightWidth = 24
		leftWidth = m.width - gap - rightWidth
	}

	leftBlock := m.renderChunkList(leftWidth, remaining)
	rightBlock := m.renderChunkDetail(rightWidth, remaining)
	lines = append(lines, joinColumns(leftBlock, rightBlock, gap)...)

	lines = append(lines, "", m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) renderChunkList(width, height int) []string {
	lines := []string{renderSectionDivider(width, "chunks")}
	if len(m.detail.entries) == 0 {
		lines = append(lines, browseMutedStyle.Render("no chunks"))
		return padLines(lines, width, height)
	}
	if height < 3 {
		height = 3
	}
	maxVisible := max(height-1, 1)

	start, end := visibleRange(len(m.detail.entries), m.entryCursor, maxVisible)
	for i := start; i < end; i++ {
		entry := m.detail.entries[i]
		cursor := " "
		if i == m.entryCursor {
			cursor = ">"
		}

		preview := oneLine(entry.Text)
		line := fmt.Sprintf("%s %3d  %s", cursor, entry.Ordinal, truncateText(preview, max(width-8, 10)))

		if i == m.entryCursor {
			line = browseHighlightStyle.Render(line)
		}

		lines = append(lines, line)
	}

	return padLines(lines, width, height)
}

func (m browseModel) renderChunkDetail(width, height int) []string {
	lines := []string{renderSectionDivider(width, "chunk detail")}
	if len(m.detail.entries) == 0 {
		lines = append(lines, browseMutedStyle.Render("no chunk"))
		return padLines(lines, width, height)
	}
	if height < 3 {
		height = 3
	}

	entry := m.detail.entries[m.entryCursor]
	textWidth := max(20, width-2)

	lines = append(lines, fmt.Sprintf("ordinal: %d  embedded: %d dims", entry.Ordinal, len(entry.Embedding)))

	if entry.Context != "" {
		lines = append(lines, "", browseContextStyle.Render("context:"))
		for _, wrapped := range wrapText(entry.Context, textWidth) {
			lines = append(lines, browseContextStyle.Render(wrapped))
		}
	} else {
		lines = append(lines, "", browseMutedStyle.Render("context: (none)"))
	}

	lines = append(lines, "", "text:")
	lines = append(lines, wrapText(entry.Text, textWidth)...)

	return padLines(lines, width, height)
}

func (m browseModel) viewFooter() string {
	return browseMutedStyle.Render(m.help.View(m.keys))
}

// listHeight reports how many source rows fit under the given header lines.
func (m browseModel) listHeight(used int) int {
	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	footerHeight := 3
	return max(screenHeight-used-footerHeight, 5)
}

func dimensionLabel(dim int) string {
	if dim == 0 {
		return "dimension unfixed"
	}
	return fmt.Sprintf("dimension %d", dim)
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

// oneLine flattens a chunk's newlines for single-row previews.
func oneLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return browseDividerStyle.Render(strings.Repeat("─", lineWidth))
}

func renderSectionDivider(width int, title string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	label := fmt.Sprintf("─── %s ", title)
	remaining := lineWidth - lipgloss.Width(label) - 2
	if remaining < 0 {
		return "  " + label
	}
	return "  " + label + strings.Repeat("─", remaining)
}

func padLines(lines []string, width, height int) []string {
	if height <= 0 {
		return []string{}
	}
	if width <= 0 {
		width = 1
	}
	result := make([]string, 0, height)
	for _, line := range lines {
		result = append(result, padRight(line, width))
		if len(result) >= height {
			return result[:height]
		}
	}
	for len(result) < height {
		result = append(result, strings.Repeat(" ", width))
	}
	return result
}

func padRight(value string, width int) string {
	lineWidth := lipgloss.Width(value)
	if lineWidth >= width {
		return value
	}
	return value + strings.Repeat(" ", width-lineWidth)
}

func joinColumns(left, right []string, gap int) []string {
	maxLines := max(len(right), len(left))
	lines := make([]string, 0, maxLines)
	gapSpace := strings.Repeat(" ", gap)
	for i := range maxLines {
		leftLine := ""
		if i < len(left) {
			leftLine = left[i]
		}
		rightLine := ""
		if i < len(right) {
			rightLine = right[i]
		}
		lines = append(lines, leftLine+gapSpace+rightLine)
	}
	return lines
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
