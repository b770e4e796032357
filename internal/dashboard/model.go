package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"solana-signals/internal/domain"
)

// Polling and input tuning.
const (
	DefaultPollInterval = 30 * time.Second
	debounceDelay       = 500 * time.Millisecond
	noticeLifetime      = 4 * time.Second
	requestTimeout      = 15 * time.Second
)

type view int

const (
	viewBoard view = iota
	viewDetail
)

// Messages.
type (
	tickMsg struct{}

	// boardMsg is one poll result. seq implements latest-wins delivery
	// within the poll stream: an older in-flight poll never overwrites a
	// newer one.
	boardMsg struct {
		seq       int
		signals   []*domain.TokenSignal
		usingReal bool
		portfolio *domain.Portfolio
		holdings  []*domain.Holding
		err       error
	}

	analyzeMsg struct {
		seq    int
		signal *domain.TokenSignal
		err    error
	}

	tradeMsg struct {
		seq    int
		result *TradeResult
		err    error
	}

	debounceFireMsg struct{ seq int }
	noticeClearMsg  struct{ seq int }
)

// Model is the dashboard's bubbletea model.
type Model struct {
	client      *Client
	minScore    int
	pollEvery   time.Duration
	tradeAmount float64

	view     view
	signals  []*domain.TokenSignal
	selected int

	portfolio *domain.Portfolio
	holdings  []*domain.Holding

	usingReal   bool
	lastUpdated time.Time

	// detail is a snapshot taken when the modal opens; polling never
	// mutates it while it is on screen.
	detail *domain.TokenSignal

	// Address input with debounce.
	inputActive bool
	input       string
	debounceSeq int

	// Request sequencing, one counter pair per response stream. Latest-wins
	// holds within a stream only: a poll that lands early must not discard
	// a pending analyze or trade result, so the streams never share a
	// counter.
	boardSeq       int
	boardApplied   int
	analyzeSeq     int
	analyzeApplied int
	tradeSeq       int
	tradeApplied   int

	notice    string
	noticeErr bool
	noticeSeq int

	width  int
	height int
}

// NewModel creates the dashboard model over an API client.
func NewModel(client *Client, minScore int, tradeAmount float64) Model {
	return Model{
		client:      client,
		minScore:    minScore,
		pollEvery:   DefaultPollInterval,
		tradeAmount: tradeAmount,
		width:       100,
		height:      40,
	}
}

// Init fires an immediate tick so the first poll runs through the regular
// tick path and sequencing state stays in Update.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.pollEvery, func(time.Time) tea.Msg { return tickMsg{} })
}

// pollCmd fetches the board in one command. It captures the next sequence
// number at creation so responses can be ordered on arrival.
func (m *Model) pollCmd() tea.Cmd {
	m.boardSeq++
	seq := m.boardSeq
	client := m.client
	minScore := m.minScore

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		list, err := client.Signals(ctx, minScore, 20)
		if err != nil {
			return boardMsg{seq: seq, err: err}
		}
		portfolio, err := client.Portfolio(ctx)
		if err != nil {
			return boardMsg{seq: seq, err: err}
		}
		holdings, err := client.Holdings(ctx)
		if err != nil {
			return boardMsg{seq: seq, err: err}
		}

		return boardMsg{
			seq:       seq,
			signals:   list.Signals,
			usingReal: list.UsingRealData,
			portfolio: portfolio.Portfolio,
			holdings:  holdings.Holdings,
		}
	}
}

func (m *Model) analyzeCmd(address string) tea.Cmd {
	m.analyzeSeq++
	seq := m.analyzeSeq
	client := m.client

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := client.Analyze(ctx, address)
		if err != nil {
			return analyzeMsg{seq: seq, err: err}
		}
		return analyzeMsg{seq: seq, signal: res.Signal}
	}
}

func (m *Model) tradeCmd(address string, side domain.TradeSide) tea.Cmd {
	m.tradeSeq++
	seq := m.tradeSeq
	client := m.client
	amount := m.tradeAmount

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := client.Trade(ctx, address, side, amount)
		if err != nil {
			return tradeMsg{seq: seq, err: err}
		}
		return tradeMsg{seq: seq, result: res}
	}
}

// Update is the message loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// The tick always re-arms; fetching is gated on the board view so
		// a frozen detail modal stays frozen.
		if m.view != viewBoard {
			return m, m.tick()
		}
		poll := m.pollCmd()
		return m, tea.Batch(m.tick(), poll)

	case boardMsg:
		if msg.seq < m.boardApplied {
			return m, nil
		}
		m.boardApplied = msg.seq
		if msg.err != nil {
			// Keep the last good board on screen.
			return m.withNotice(fmt.Sprintf("refresh failed: %v", msg.err), true)
		}
		m.signals = msg.signals
		m.portfolio = msg.portfolio
		m.holdings = msg.holdings
		m.usingReal = msg.usingReal
		m.lastUpdated = time.Now()
		if m.selected >= len(m.signals) {
			m.selected = maxInt(0, len(m.signals)-1)
		}
		return m, nil

	case analyzeMsg:
		if msg.seq < m.analyzeApplied {
			return m, nil
		}
		m.analyzeApplied = msg.seq
		if msg.err != nil {
			return m.withNotice(fmt.Sprintf("analyze failed: %v", msg.err), true)
		}
		m.detail = msg.signal
		m.view = viewDetail
		return m, nil

	case tradeMsg:
		if msg.seq < m.tradeApplied {
			return m, nil
		}
		m.tradeApplied = msg.seq
		if msg.err != nil {
			return m.withNotice(fmt.Sprintf("trade failed: %v", msg.err), true)
		}
		next, cmd := m.withNotice(fmt.Sprintf("trade %s: %s", shorten(msg.result.TradeID), msg.result.Status), false)
		model := next.(Model)
		poll := model.pollCmd()
		return model, tea.Batch(cmd, poll)

	case debounceFireMsg:
		// Only the newest keystroke's timer fires an analyze.
		if msg.seq != m.debounceSeq || strings.TrimSpace(m.input) == "" {
			return m, nil
		}
		analyze := m.analyzeCmd(strings.TrimSpace(m.input))
		return m, analyze

	case noticeClearMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputActive {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.view == viewDetail {
			m.view = viewBoard
			m.detail = nil
		}
		return m, nil

	case "up", "k":
		if m.view == viewBoard {
			m.selected = maxInt(0, m.selected-1)
		}
		return m, nil

	case "down", "j":
		if m.view == viewBoard {
			m.selected = minInt(len(m.signals)-1, m.selected+1)
		}
		return m, nil

	case "enter":
		if m.view == viewBoard && m.selected < len(m.signals) {
			// Snapshot: the modal shows this signal as it is now.
			snapshot := *m.signals[m.selected]
			m.detail = &snapshot
			m.view = viewDetail
		}
		return m, nil

	case "/":
		m.inputActive = true
		m.input = ""
		return m, nil

	case "r":
		if m.view == viewBoard {
			poll := m.pollCmd()
			return m, poll
		}
		return m, nil

	case "b":
		if addr := m.currentToken(); addr != "" {
			trade := m.tradeCmd(addr, domain.SideBuy)
			return m, trade
		}
		return m, nil

	case "s":
		if addr := m.currentToken(); addr != "" {
			trade := m.tradeCmd(addr, domain.SideSell)
			return m, trade
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputActive = false
		m.input = ""
		return m, nil

	case "enter":
		m.inputActive = false
		if addr := strings.TrimSpace(m.input); addr != "" {
			analyze := m.analyzeCmd(addr)
			return m, analyze
		}
		return m, nil

	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m.armDebounce()

	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
			return m.armDebounce()
		}
		return m, nil
	}
}

// armDebounce schedules an analyze for half a second after the last
// keystroke; earlier timers become no-ops.
func (m Model) armDebounce() (tea.Model, tea.Cmd) {
	m.debounceSeq++
	seq := m.debounceSeq
	return m, tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceFireMsg{seq: seq}
	})
}

// currentToken is the address a trade key applies to.
func (m Model) currentToken() string {
	if m.view == viewDetail && m.detail != nil {
		return m.detail.TokenAddress
	}
	if m.selected < len(m.signals) {
		return m.signals[m.selected].TokenAddress
	}
	return ""
}

// withNotice shows a transient message that clears itself.
func (m Model) withNotice(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeErr = isErr
	m.noticeSeq++
	seq := m.noticeSeq
	return m, tea.Tick(noticeLifetime, func(time.Time) tea.Msg {
		return noticeClearMsg{seq: seq}
	})
}

// View renders the UI.
func (m Model) View() string {
	if m.view == viewDetail && m.detail != nil {
		return m.renderDetail()
	}
	return m.renderBoard()
}

func (m Model) renderBoard() string {
	var b strings.Builder

	title := titleStyle.Render("SOLANA SIGNALS")
	badge := infoStyle.Render("live")
	if !m.usingReal {
		badge = staleStyle.Render("stale")
	}
	updated := ""
	if !m.lastUpdated.IsZero() {
		updated = dimStyle.Render("updated " + m.lastUpdated.Format("15:04:05"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", badge, "  ", updated))
	b.WriteString("\n\n")

	b.WriteString(m.renderPortfolio())
	b.WriteString("\n")
	b.WriteString(m.renderSignals())
	b.WriteString("\n")
	b.WriteString(m.renderHoldings())
	b.WriteString("\n")

	if m.inputActive {
		b.WriteString(headerStyle.Render("analyze> ") + m.input + "_\n")
	}
	if m.notice != "" {
		style := infoStyle
		if m.noticeErr {
			style = noticeStyle
		}
		b.WriteString(style.Render(m.notice) + "\n")
	}

	b.WriteString(footerStyle.Render("↑/↓ select · enter detail · / analyze · b buy · s sell · r refresh · q quit"))
	return b.String()
}

func (m Model) renderPortfolio() string {
	if m.portfolio == nil {
		return sectionStyle.Render(dimStyle.Render("portfolio loading..."))
	}
	p := m.portfolio
	pnl := fmt.Sprintf("%+.4f SOL", p.CurrentPnL)
	line := fmt.Sprintf("Balance %.4f SOL · Daily PnL %s / %.2f target · Win %.1f%% (%d/%d, %d failed)",
		p.SolBalance, pnl, p.DailyTarget, p.WinRate, p.SuccessfulTrades, p.TotalTrades, p.FailedTrades)
	return sectionStyle.Render(headerStyle.Render("PORTFOLIO") + "\n" + line)
}

func (m Model) renderSignals() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("SIGNALS"))
	b.WriteString("\n")

	if len(m.signals) == 0 {
		b.WriteString(dimStyle.Render("no signals yet"))
	}
	for i, sig := range m.signals {
		score := scoreStyle(sig.CombinedScore).Render(fmt.Sprintf("%3d", sig.CombinedScore))
		kind := signalTypeStyle(sig.SignalType).Render(fmt.Sprintf("%-10s", sig.SignalType))
		row := fmt.Sprintf("  %-8s %s  %s  mom %3d  %s  %s",
			sig.Symbol, score, kind, sig.MomentumScore,
			fmt.Sprintf("%.8f", sig.CurrentPrice), dimStyle.Render(shorten(sig.TokenAddress)))
		if i == m.selected {
			row = selectedRowStyle.Render("> " + row[2:])
		}
		b.WriteString(row + "\n")
	}
	return sectionStyle.Render(b.String())
}

func (m Model) renderHoldings() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("HOLDINGS"))
	b.WriteString("\n")

	if len(m.holdings) == 0 {
		b.WriteString(dimStyle.Render("no open positions"))
	}
	for _, h := range m.holdings {
		pnlStyle := infoStyle
		if h.PnLSol < 0 {
			pnlStyle = noticeStyle
		}
		b.WriteString(fmt.Sprintf("  %-8s %12.2f @ %.8f  %s\n",
			h.Symbol, h.Amount, h.EntryPrice,
			pnlStyle.Render(fmt.Sprintf("%+.4f SOL (%+.1f%%)", h.PnLSol, h.PnLPct))))
	}
	return sectionStyle.Render(b.String())
}

func (m Model) renderDetail() string {
	sig := m.detail
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", sig.Symbol, shorten(sig.TokenAddress))))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Signal     %s  confidence %d%%\n",
		signalTypeStyle(sig.SignalType).Render(string(sig.SignalType)), sig.Confidence))
	b.WriteString(fmt.Sprintf("Scores     combined %s · smart %d · momentum %d · pattern %d (%s)\n",
		scoreStyle(sig.CombinedScore).Render(fmt.Sprintf("%d", sig.CombinedScore)),
		sig.SmartMoneyScore, sig.MomentumScore, sig.PatternScore, sig.Pattern))
	b.WriteString(fmt.Sprintf("Holders    %d smart · %d whales\n", sig.SmartMoneyCount, sig.WhaleCount))
	b.WriteString(fmt.Sprintf("Market     vol %s x%.1f · 24h %+.1f%% · RSI %.0f · pressure %+.0f\n",
		sig.VolumeTrend, sig.VolumeRatio, sig.PriceMomentum24h, sig.RSI, sig.NetPressure))
	if sig.SuggestedStop > 0 {
		b.WriteString(fmt.Sprintf("Plan       entry %.8f · stop %.8f · target %.8f · R/R %s\n",
			sig.SuggestedEntry, sig.SuggestedStop, sig.SuggestedTarget, sig.RiskReward))
	}

	if len(sig.GreenFlags) > 0 {
		b.WriteString("\n" + infoStyle.Render("+ "+strings.Join(sig.GreenFlags, "\n+ ")) + "\n")
	}
	if len(sig.RedFlags) > 0 {
		b.WriteString(noticeStyle.Render("- "+strings.Join(sig.RedFlags, "\n- ")) + "\n")
	}

	if m.notice != "" {
		style := infoStyle
		if m.noticeErr {
			style = noticeStyle
		}
		b.WriteString("\n" + style.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + footerStyle.Render("b buy · s sell · esc back · q quit"))
	return modalStyle.Render(b.String())
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
