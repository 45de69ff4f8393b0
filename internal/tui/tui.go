package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"lanssh/internal/discover"
)

// Stream messages carry the session generation they came from, so a
// listener still blocked on a superseded session's channel cannot
// disturb the current one after a rescan.
type eventMsg struct {
	gen   int
	event discover.Event
}

type streamClosedMsg struct {
	gen int
}

// hostItem adapts a DiscoveredHost to the bubbles list.
type hostItem struct {
	host discover.DiscoveredHost
}

func (i hostItem) FilterValue() string {
	return i.host.DisplayName + " " + i.host.Host
}

func (i hostItem) Title() string {
	return i.host.DisplayName
}

func (i hostItem) Description() string {
	parts := []string{fmt.Sprintf("%s:%d", i.host.Host, i.host.Port)}
	if i.host.LatencyMs > 0 {
		parts = append(parts, fmt.Sprintf("%dms", i.host.LatencyMs))
	}
	if i.host.Manufacturer != "" {
		parts = append(parts, i.host.Manufacturer)
	}
	sources := make([]string, 0, len(i.host.Sources))
	for _, src := range i.host.Sources {
		switch src {
		case discover.SourceServiceDiscovery:
			sources = append(sources, "bonjour")
		case discover.SourceActiveProbe:
			sources = append(sources, "probe")
		}
	}
	if len(sources) > 0 {
		parts = append(parts, strings.Join(sources, "+"))
	}
	return strings.Join(parts, " · ")
}

type keyMap struct {
	Select key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "use host")),
		Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Model is the interactive host picker. It consumes the discovery event
// stream, folds it through an Aggregator and renders the live list.
type Model struct {
	ctx     context.Context
	manager *discover.Manager
	agg     *discover.Aggregator
	events  <-chan discover.Event

	gen int

	list    list.Model
	spinner spinner.Model
	keys    keyMap

	scanning         bool
	permissionDenied bool
	failure          string

	selected *discover.DiscoveredHost
}

// New creates a picker bound to the given manager. The scan starts when
// the program runs.
func New(ctx context.Context, manager *discover.Manager) *Model {
	delegate := list.NewDefaultDelegate()
	hostList := list.New(nil, delegate, 0, 0)
	hostList.Title = "Hosts on your network"
	hostList.SetShowStatusBar(false)
	hostList.SetFilteringEnabled(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:     ctx,
		manager: manager,
		agg:     discover.NewAggregator(),
		list:    hostList,
		spinner: sp,
		keys:    defaultKeyMap(),
	}
}

// Selected returns the host picked with enter, if any.
func (m *Model) Selected() *discover.DiscoveredHost {
	return m.selected
}

func waitForEvent(ch <-chan discover.Event, gen int) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{gen: gen}
		}
		return eventMsg{gen: gen, event: ev}
	}
}

func (m *Model) Init() tea.Cmd {
	m.events = m.manager.Start(m.ctx)
	m.scanning = true
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events, m.gen))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		frameW, frameH := appStyle.GetFrameSize()
		m.list.SetSize(msg.Width-frameW, msg.Height-frameH-3)
		return m, nil

	case tea.KeyMsg:
		// Ignore shortcuts while the list filter input is active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.manager.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rescan):
			m.agg.Reset()
			m.permissionDenied = false
			m.failure = ""
			m.gen++
			m.events = m.manager.Rescan(m.ctx)
			m.scanning = true
			return m, tea.Batch(m.list.SetItems(nil), m.spinner.Tick, waitForEvent(m.events, m.gen))
		case key.Matches(msg, m.keys.Select):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				host := item.host
				m.selected = &host
				m.manager.Stop()
				return m, tea.Quit
			}
		}

	case eventMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.applyEvent(msg.event)
		return m, tea.Batch(m.refreshItems(), waitForEvent(m.events, m.gen))

	case streamClosedMsg:
		if msg.gen == m.gen {
			m.scanning = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) applyEvent(ev discover.Event) {
	switch ev.Kind {
	case discover.EventHostFound:
		m.agg.Apply(ev)
	case discover.EventPermissionDenied:
		m.permissionDenied = true
	case discover.EventFailed:
		m.failure = ev.Message
	case discover.EventScanningFinished:
		m.scanning = false
	}
}

func (m *Model) refreshItems() tea.Cmd {
	hosts := m.agg.Hosts()
	items := make([]list.Item, 0, len(hosts))
	for _, host := range hosts {
		items = append(items, hostItem{host: host})
	}
	return m.list.SetItems(items)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("lanssh"))
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return appStyle.Render(b.String())
}

func (m *Model) statusLine() string {
	switch {
	case m.permissionDenied:
		return warnStyle.Render("Local network access denied — allow it in system settings, then press r to rescan.")
	case m.failure != "":
		return errorStyle.Render("Discovery error: " + m.failure)
	case m.scanning:
		return m.spinner.View() + statusStyle.Render(" scanning…  (enter: use host · r: rescan · q: quit)")
	case m.agg.Len() == 0:
		return statusStyle.Render("No hosts found. That can be normal on isolated networks — press r to rescan.")
	default:
		return statusStyle.Render("Scan finished. enter: use host · r: rescan · q: quit")
	}
}
