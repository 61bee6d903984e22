package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-loader/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 8

// tuiSink keeps the most recent guest log lines for the view.
type tuiSink struct {
	lines []string
	mu    sync.Mutex
}

func (s *tuiSink) Log(sev loader.Severity, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, renderSeverity(sev, true)+" "+msg)
	if len(s.lines) > maxLogLines {
		s.lines = s.lines[len(s.lines)-maxLogLines:]
	}
}

func (s *tuiSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type interactiveModel struct {
	ctx      context.Context
	err      error
	cfg      *configuration
	loader   *loader.Loader
	module   *loader.Module
	logs     *tuiSink
	location string
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
	statePeekInput
)

func newInteractiveModel(ctx context.Context, cfg *configuration, location string) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		cfg:      cfg,
		location: location,
		logs:     &tuiSink{},
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err    error
	loader *loader.Loader
	mod    *loader.Module
	funcs  []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	l, err := m.cfg.newLoader(m.ctx)
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := l.Load(m.ctx, loader.Path(m.location), &loader.Options{Log: m.logs})
	if err != nil {
		l.Close(m.ctx)
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, name := range mod.Exports.Names() {
		fn := mod.Exports.Func(name)
		if !fn.Exists() {
			continue
		}
		def := fn.Definition()
		funcs = append(funcs, funcInfo{name: name, params: def.ParamTypes(), results: def.ResultTypes()})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	return loadedMsg{loader: l, mod: mod, funcs: funcs}
}

func (m *interactiveModel) close() {
	if m.module != nil {
		m.module.Close(m.ctx)
	}
	if m.loader != nil {
		m.loader.Close(m.ctx)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state == stateSelectFunc || m.state == stateShowResult || m.module == nil {
				m.close()
				return m, tea.Quit
			}

		case "m":
			if m.state == stateSelectFunc && m.module != nil {
				m.preparePeek()
				m.state = statePeekInput
				return m, nil
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case statePeekInput:
				m.peekMemory()
				m.state = stateShowResult

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs, statePeekInput, stateShowResult:
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.loader = msg.loader
		m.module = msg.mod

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs || m.state == statePeekInput {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) preparePeek() {
	ti := textinput.New()
	ti.Placeholder = "address, e.g. 1024 or 0x400"
	ti.Prompt = "address: "
	ti.Width = 40
	ti.Focus()
	m.inputs = []textinput.Model{ti}
	m.focusIdx = 0
}

func (m *interactiveModel) peekMemory() {
	addr, err := strconv.ParseUint(strings.TrimSpace(m.inputs[0].Value()), 0, 32)
	if err != nil {
		m.err = fmt.Errorf("address: %w", err)
		return
	}
	m.result = peek(m.module.Memory(), uint32(addr))
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.module == nil {
		return callResultMsg{err: fmt.Errorf("module not loaded")}
	}

	f := m.funcs[m.selected]
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	params, err := parseArgs(f.params, values)
	if err != nil {
		return callResultMsg{err: err}
	}

	res, err := m.module.Exports.Func(f.name).Call(m.ctx, params...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: formatResults(f.results, res)}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.module == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Loader"))
	b.WriteString(" ")
	b.WriteString(m.location)
	if t := m.module.Memory(); t != nil {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  memory %d bytes, generation %d", t.Size(), t.Generation())))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatFunc(f)))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • m peek memory • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(f.params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case statePeekInput:
		b.WriteString("Peek memory\n\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter show • esc back"))

	case stateShowResult:
		b.WriteString("Result:\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	if lines := m.logs.snapshot(); len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("guest log"))
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	result := ""
	if len(f.results) > 0 {
		results := make([]string, len(f.results))
		for i, r := range f.results {
			results[i] = typeStyle.Render(api.ValueTypeName(r))
		}
		result = " -> " + strings.Join(results, ", ")
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(ctx context.Context, cfg *configuration, location string) error {
	p := tea.NewProgram(newInteractiveModel(ctx, cfg, location), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
