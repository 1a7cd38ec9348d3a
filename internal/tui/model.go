package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/collision"
	"github.com/hylla/stageboard/internal/domain"
)

// Board geometry in terminal cells. Rows are counted from the top of the screen.
const (
	boardTop       = 2
	footerRows     = 3
	columnGap      = 1
	headerRows     = 3
	cardRows       = 2
	cardGapRows    = 1
	minColumnWidth = 18
	historyLimit   = 20
)

// boardState is shared by every copy of Model so engine callbacks and layout closures
// always observe the latest values.
type boardState struct {
	engine    *app.Engine
	dispatch  *cmdDispatcher
	projector *app.Projector
	grid      collision.Grid
	notice    string
	loaded    bool
}

// detailState tracks the item detail panel.
type detailState struct {
	open    bool
	itemID  string
	events  []domain.StatusEvent
	err     error
	loading bool
}

// historyLoadedMsg carries status history for the detail panel.
type historyLoadedMsg struct {
	itemID string
	events []domain.StatusEvent
	err    error
}

// Model is the interactive board.
type Model struct {
	state *boardState
	ctx   context.Context

	keys       keyMap
	help       help.Model
	cardFields CardFieldConfig
	groupBy    app.GroupKey
	dueSoon    time.Duration
	history    HistoryReader
	copyText   func(string) error
	now        func() time.Time
	md         *markdownRenderer

	ready       bool
	width       int
	height      int
	selected    string
	selectedKey string
	status      string
	detail      detailState
}

// NewModel builds the board engine from cfg. The dispatcher and layout are owned by the model.
func NewModel(cfg app.EngineConfig, opts ...Option) (Model, error) {
	m := Model{
		ctx:        context.Background(),
		keys:       newKeyMap(KeyConfig{}),
		help:       help.New(),
		cardFields: DefaultCardFieldConfig(),
		groupBy:    app.GroupStage,
		dueSoon:    48 * time.Hour,
		copyText:   defaultClipboard,
		now:        time.Now,
		md:         &markdownRenderer{},
		status:     "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}

	state := &boardState{
		dispatch:  newCmdDispatcher(m.ctx),
		projector: app.NewProjector(),
		grid:      gridFor(0, cfg.Stages.Len()),
	}
	cfg.Dispatcher = state.dispatch
	cfg.Layout = func(b *domain.Board) collision.Layout {
		return state.grid.Layout(b)
	}
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return Model{}, err
	}
	engine.OnBoardChanged(func(*domain.Board) {
		state.loaded = true
	})
	engine.OnSyncNotice(func(n app.SyncNotice) {
		state.notice = n.Message
		state.loaded = true
	})
	state.engine = engine
	m.state = state
	return m, nil
}

// Init requests the first snapshot.
func (m Model) Init() tea.Cmd {
	m.state.engine.Refresh()
	return m.state.dispatch.flush()
}

// Update handles terminal events and store completions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.state.grid = gridFor(m.width, m.state.engine.Board().StageSet().Len())

	case dispatchDoneMsg:
		if msg.done != nil {
			msg.done(msg.err)
		}
		if m.status == "loading..." && m.state.loaded {
			m.status = "ready"
		}
		m.ensureSelection()
		if m.detail.open {
			if _, ok := m.state.engine.Board().Item(m.detail.itemID); !ok {
				m.detail = detailState{}
			}
		}

	case historyLoadedMsg:
		if m.detail.open && m.detail.itemID == msg.itemID {
			m.detail.loading = false
			m.detail.events = msg.events
			m.detail.err = msg.err
		}

	case tea.BlurMsg:
		if m.dragging() {
			m.state.engine.CancelDrag()
			m.status = "drag cancelled: focus lost"
		}

	case tea.MouseClickMsg:
		m = m.handleMouseDown(msg.Mouse())

	case tea.MouseMotionMsg:
		if session, ok := m.state.engine.Session(); ok && !session.Keyboard {
			m.state.engine.UpdateDrag(pointAt(msg.X, msg.Y))
		}

	case tea.MouseReleaseMsg:
		if session, ok := m.state.engine.Session(); ok && !session.Keyboard {
			m.state.engine.UpdateDrag(pointAt(msg.X, msg.Y))
			m.finishDrag()
		}

	case tea.KeyPressMsg:
		m, cmd = m.handleKey(msg)
	}
	return m, tea.Batch(cmd, m.state.dispatch.flush())
}

// handleKey routes one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	engine := m.state.engine
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if m.detail.open {
		switch {
		case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.drop), key.Matches(msg, m.keys.itemInfo):
			m.detail = detailState{}
		case key.Matches(msg, m.keys.copyID):
			m.copySelected()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.cancel):
		if m.dragging() {
			out := engine.CancelDrag()
			m.status = m.outcomeStatus(out)
		} else if m.help.ShowAll {
			m.help.ShowAll = false
		}
	case key.Matches(msg, m.keys.pickUp):
		if m.dragging() {
			m.finishDrag()
		} else {
			m.pickUp()
		}
	case key.Matches(msg, m.keys.drop):
		if m.dragging() {
			m.finishDrag()
			return m, nil
		}
		return m.openDetail()
	case key.Matches(msg, m.keys.moveLeft):
		m.move(collision.DirectionLeft)
	case key.Matches(msg, m.keys.moveRight):
		m.move(collision.DirectionRight)
	case key.Matches(msg, m.keys.moveUp):
		m.move(collision.DirectionUp)
	case key.Matches(msg, m.keys.moveDown):
		m.move(collision.DirectionDown)
	case key.Matches(msg, m.keys.groupBy):
		if m.dragging() {
			m.status = "drop or cancel before regrouping"
			return m, nil
		}
		m.groupBy = m.groupBy.Next()
		m.selectedKey = ""
		m.ensureSelection()
		m.status = "grouped by " + string(m.groupBy)
	case key.Matches(msg, m.keys.itemInfo):
		if !m.dragging() {
			return m.openDetail()
		}
	case key.Matches(msg, m.keys.copyID):
		m.copySelected()
	case key.Matches(msg, m.keys.reload):
		engine.Refresh()
		m.status = "refreshing"
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// handleMouseDown selects the card under the pointer and arms a drag in the stage view.
func (m Model) handleMouseDown(mouse tea.Mouse) Model {
	if m.detail.open || mouse.Button != tea.MouseLeft || m.dragging() {
		return m
	}
	groupKey, itemID, ok := m.itemAt(mouse.X, mouse.Y)
	if !ok {
		return m
	}
	m.selected = itemID
	m.selectedKey = groupKey
	if m.groupBy != app.GroupStage {
		return m
	}
	if m.state.engine.BeginDrag(itemID, pointAt(mouse.X, mouse.Y)) {
		m.state.notice = ""
	}
	return m
}

// dragging reports whether a gesture is active.
func (m Model) dragging() bool {
	state := m.state.engine.DragState()
	return state == app.DragArmed || state == app.DragDragging
}

func (m *Model) pickUp() {
	if m.groupBy != app.GroupStage {
		m.status = "items can only be moved in the stage view"
		return
	}
	if m.selected == "" {
		return
	}
	if !m.state.engine.BeginKeyboardDrag(m.selected) {
		return
	}
	m.state.notice = ""
	title := m.selected
	if item, ok := m.state.engine.Board().Item(m.selected); ok {
		title = item.Title
	}
	m.status = fmt.Sprintf("carrying %q", title)
}

func (m *Model) finishDrag() {
	out := m.state.engine.EndDrag()
	m.status = m.outcomeStatus(out)
	m.ensureSelection()
}

// move steps the carried item or the selection.
func (m *Model) move(dir collision.Direction) {
	if session, ok := m.state.engine.Session(); ok {
		if session.Keyboard {
			m.state.engine.StepDrag(dir)
		}
		return
	}
	groups := m.groups()
	col, row, ok := locate(groups, m.selectedKey, m.selected)
	if !ok {
		m.ensureSelection()
		return
	}
	switch dir {
	case collision.DirectionUp:
		row = max(0, row-1)
	case collision.DirectionDown:
		row = min(len(groups[col].Items)-1, row+1)
	case collision.DirectionLeft, collision.DirectionRight:
		step := 1
		if dir == collision.DirectionLeft {
			step = -1
		}
		next := col + step
		for next >= 0 && next < len(groups) && len(groups[next].Items) == 0 {
			next += step
		}
		if next < 0 || next >= len(groups) {
			return
		}
		col = next
		row = min(row, len(groups[col].Items)-1)
	}
	m.selectedKey = groups[col].Key
	m.selected = groups[col].Items[row].ID
}

// ensureSelection keeps the selection on an item that is still visible.
func (m *Model) ensureSelection() {
	groups := m.groups()
	if col, _, ok := locate(groups, m.selectedKey, m.selected); ok {
		m.selectedKey = groups[col].Key
		return
	}
	for _, g := range groups {
		if len(g.Items) > 0 {
			m.selected = g.Items[0].ID
			m.selectedKey = g.Key
			return
		}
	}
	m.selected = ""
	m.selectedKey = ""
}

func (m *Model) copySelected() {
	id := m.selected
	if m.detail.open {
		id = m.detail.itemID
	}
	if id == "" {
		return
	}
	if err := m.copyText(id); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "copied " + id
}

// openDetail shows the selected item and loads its history.
func (m Model) openDetail() (Model, tea.Cmd) {
	if m.selected == "" {
		return m, nil
	}
	m.detail = detailState{open: true, itemID: m.selected, loading: m.history != nil}
	if m.history == nil {
		return m, nil
	}
	ctx, history, itemID := m.ctx, m.history, m.selected
	return m, func() tea.Msg {
		events, err := history.ListStatusEvents(ctx, itemID, historyLimit)
		return historyLoadedMsg{itemID: itemID, events: events, err: err}
	}
}

func (m Model) outcomeStatus(out app.DragOutcome) string {
	board := m.state.engine.Board()
	title := out.Session.ItemID
	if item, ok := board.Item(out.Session.ItemID); ok {
		title = item.Title
	}
	switch out.Kind {
	case app.OutcomeDropped:
		if out.Transition != nil {
			name := string(out.Transition.To)
			if stage, ok := board.StageSet().Stage(out.Transition.To); ok {
				name = stage.Name
			}
			return fmt.Sprintf("moved %q to %s", title, name)
		}
		if out.Changed {
			return fmt.Sprintf("reordered %q", title)
		}
		return ""
	case app.OutcomeCancelled:
		return "drag cancelled"
	default:
		return m.status
	}
}

// groups returns the projected columns for the active grouping.
func (m Model) groups() []app.Group {
	return m.state.projector.Project(m.state.engine.Board(), m.groupBy)
}

// itemAt hit-tests a screen cell against the rendered columns.
func (m Model) itemAt(x, y int) (string, string, bool) {
	groups := m.groups()
	width := int(m.state.grid.ColumnWidth)
	if width <= 0 || x < 0 {
		return "", "", false
	}
	col := x / (width + columnGap)
	if col >= len(groups) || x-col*(width+columnGap) >= width {
		return "", "", false
	}
	rel := y - boardTop - headerRows
	if rel < 0 || rel%(cardRows+cardGapRows) >= cardRows {
		return "", "", false
	}
	row := rel / (cardRows + cardGapRows)
	if row >= len(groups[col].Items) {
		return "", "", false
	}
	return groups[col].Key, groups[col].Items[row].ID, true
}

// View renders the board.
func (m Model) View() tea.View {
	content := "loading..."
	if m.ready {
		content = m.renderBoard()
	}
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	v.ReportFocus = true
	return v
}

type boardStyles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	muted    lipgloss.Style
	rule     lipgloss.Style
	selected lipgloss.Style
	carried  lipgloss.Style
	warn     lipgloss.Style
	overdue  lipgloss.Style
	dueSoon  lipgloss.Style
	panel    lipgloss.Style
}

func newBoardStyles() boardStyles {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	return boardStyles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		header:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:    lipgloss.NewStyle().Foreground(muted),
		rule:     lipgloss.NewStyle().Foreground(dim),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		carried:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(accent),
		warn:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		overdue:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		dueSoon:  lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
	}
}

func (m Model) renderBoard() string {
	styles := newBoardStyles()
	engine := m.state.engine

	header := styles.title.Render("stageboard") + "  " + engine.Scope()
	header += styles.muted.Render("  [" + engine.DragState().String() + "]")
	if m.groupBy != app.GroupStage {
		header += styles.muted.Render("  grouped: " + string(m.groupBy) + " (read-only)")
	}

	width := int(m.state.grid.ColumnWidth)
	groups := m.groups()
	columns := make([][]string, 0, len(groups))
	tallest := 0
	for _, g := range groups {
		lines := m.renderColumn(g, width, styles)
		tallest = max(tallest, len(lines))
		columns = append(columns, lines)
	}
	blank := strings.Repeat(" ", width)
	gap := strings.Repeat(" ", columnGap)
	rows := make([]string, 0, tallest)
	for i := range tallest {
		parts := make([]string, 0, len(columns))
		for _, lines := range columns {
			if i < len(lines) {
				parts = append(parts, lines[i])
			} else {
				parts = append(parts, blank)
			}
		}
		rows = append(rows, strings.Join(parts, gap))
	}
	if len(groups) == 0 {
		rows = append(rows, styles.muted.Render("no items"))
	}

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	footer := []string{
		styles.rule.Render(strings.Repeat("─", max(1, m.width))),
		m.statusLine(styles),
		styles.muted.Render(helpBubble.View(m.keys)),
	}
	footerText := strings.Join(footer, "\n")

	body := strings.Join(rows, "\n")
	if m.height > 0 {
		body = fitLines(body, max(0, m.height-boardTop-lipgloss.Height(footerText)))
	}
	full := header + "\n\n" + body + "\n" + footerText

	if m.detail.open {
		if panel := m.renderDetail(styles); panel != "" {
			full = overlayOnContent(full, panel, max(1, m.width), max(1, m.height))
		}
	}
	return full
}

// renderColumn returns exactly width-wide lines: headerRows of header, then cardRows plus
// cardGapRows per card.
func (m Model) renderColumn(g app.Group, width int, styles boardStyles) []string {
	session, carrying := m.state.engine.Session()

	count := fmt.Sprintf("%d", len(g.Items))
	if g.WIPLimit > 0 {
		count = fmt.Sprintf("%d/%d", len(g.Items), g.WIPLimit)
	}
	title := padRight(g.Label+" "+count, width)
	headerStyle := styles.header
	if g.OverWIP {
		title = padRight(g.Label+" "+count+" WIP!", width)
		headerStyle = styles.warn
	}
	sub := g.Key
	if m.groupBy == app.GroupStage {
		if status, ok := m.state.engine.Board().StageSet().Status(domain.StageID(g.Key)); ok {
			sub = status
		}
	}
	lines := []string{
		headerStyle.Render(title),
		styles.muted.Render(padRight(sub, width)),
		styles.rule.Render(strings.Repeat("─", width)),
	}

	now := m.now()
	for _, item := range g.Items {
		marker := "  "
		style := lipgloss.NewStyle()
		switch {
		case carrying && session.ItemID == item.ID:
			marker = "⇕ "
			style = styles.carried
		case item.ID == m.selected && g.Key == m.selectedKey:
			marker = "▶ "
			style = styles.selected
		}
		lines = append(lines, style.Render(padRight(marker+item.Title, width)))

		meta, metaStyle := m.cardMeta(item, now, styles)
		lines = append(lines, metaStyle.Render(padRight("  "+meta, width)))
		for range cardGapRows {
			lines = append(lines, strings.Repeat(" ", width))
		}
	}
	return lines
}

// cardMeta builds the second card row from badges and tags.
func (m Model) cardMeta(item domain.Item, now time.Time, styles boardStyles) (string, lipgloss.Style) {
	parts := make([]string, 0, 3)
	style := styles.muted
	for _, badge := range app.ItemBadges(item, now, m.dueSoon) {
		switch badge.Kind {
		case app.BadgePriority:
			if m.cardFields.ShowPriority {
				parts = append(parts, badge.Label)
			}
		case app.BadgeOverdue:
			if m.cardFields.ShowTargetDate {
				parts = append(parts, badge.Label)
				style = styles.overdue
			}
		case app.BadgeDueSoon:
			if m.cardFields.ShowTargetDate {
				parts = append(parts, badge.Label)
				style = styles.dueSoon
			}
		}
	}
	if m.cardFields.ShowTags && len(item.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(item.Tags, " #"))
	}
	return strings.Join(parts, " · "), style
}

func (m Model) statusLine(styles boardStyles) string {
	parts := make([]string, 0, 3)
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if n := m.state.engine.InFlight(); n > 0 {
		parts = append(parts, fmt.Sprintf("syncing %d", n))
	}
	line := styles.muted.Render(strings.Join(parts, "  "))
	if m.state.notice != "" {
		line = styles.warn.Render(m.state.notice) + "  " + line
	}
	return line
}

func (m Model) renderDetail(styles boardStyles) string {
	board := m.state.engine.Board()
	item, ok := board.Item(m.detail.itemID)
	if !ok {
		return ""
	}
	stage, _ := board.StageSet().Stage(item.Stage)
	width := clamp(m.width-8, 24, 88)
	doc := itemDocument(item, stage, m.detail.events, m.detail.err)
	body := m.md.render(doc, width-4)
	if m.detail.loading {
		body += "\n\n" + styles.muted.Render("loading history...")
	}
	if m.height > 0 {
		body = fitLines(body, max(1, m.height-4))
	}
	return styles.panel.Width(width).Render(body)
}

// gridFor sizes columns to share the terminal width.
func gridFor(width, columns int) collision.Grid {
	colWidth := minColumnWidth
	if columns > 0 && width > 0 {
		colWidth = max(minColumnWidth, (width-(columns-1)*columnGap)/columns)
	}
	return collision.Grid{
		Origin:       collision.Point{X: 0, Y: boardTop},
		ColumnWidth:  float64(colWidth),
		ColumnGap:    columnGap,
		HeaderHeight: headerRows,
		CardHeight:   cardRows,
		CardGap:      cardGapRows,
	}
}

// pointAt maps a cell to its centre.
func pointAt(x, y int) collision.Point {
	return collision.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// locate finds itemID in the group keyed groupKey, or in the first group holding it.
func locate(groups []app.Group, groupKey, itemID string) (int, int, bool) {
	if itemID == "" {
		return 0, 0, false
	}
	fallbackCol, fallbackRow, found := 0, 0, false
	for col, g := range groups {
		for row, item := range g.Items {
			if item.ID != itemID {
				continue
			}
			if g.Key == groupKey {
				return col, row, true
			}
			if !found {
				fallbackCol, fallbackRow, found = col, row, true
			}
		}
	}
	return fallbackCol, fallbackRow, found
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	return min(max(v, minV), maxV)
}

// fitLines trims or pads content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centres overlay on top of base.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(baseLayer)
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// padRight truncates and pads s to exactly width cells.
func padRight(s string, width int) string {
	s = truncate(s, width)
	if gap := width - lipgloss.Width(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}
