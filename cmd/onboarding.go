package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type OnboardingSettings struct {
	Completed bool   `json:"completed"`
	ServerURL string `json:"server_url"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	path := onboardingPath(configDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepMode onboardingStep = iota
	stepServer
	stepDone
)

type onboardingModel struct {
	step           onboardingStep
	remote         bool
	existingServer string
	urlInput       textinput.Model
	settings       OnboardingSettings
	status         string
	width          int
	height         int
}

var (
	obColorSurface = lipgloss.Color("#3B4252")
	obColorMuted   = lipgloss.Color("#616E88")
	obColorText    = lipgloss.Color("#D8DEE9")
	obColorAccent  = lipgloss.Color("#88C0D0")
	obColorDanger  = lipgloss.Color("#BF616A")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obOptionStyle = lipgloss.NewStyle().
			Foreground(obColorText)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingModel(existingServer string) onboardingModel {
	in := textinput.New()
	in.Placeholder = "http://atlas.example.com:8787"
	in.CharLimit = 300
	in.Prompt = "url> "
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	in.Focus()

	return onboardingModel{
		step:           stepMode,
		remote:         false,
		existingServer: strings.TrimSpace(existingServer),
		urlInput:       in,
		settings: OnboardingSettings{
			Completed: true,
		},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.step {
		case stepMode:
			switch msg.String() {
			case "y", "Y":
				m.remote = true
				return m.nextStep()
			case "n", "N":
				m.remote = false
				return m.nextStep()
			case "up", "k":
				m.remote = false
				return m, nil
			case "down", "j":
				m.remote = true
				return m, nil
			case "left", "h":
				m.remote = false
				return m, nil
			case "right", "l":
				m.remote = true
				return m, nil
			case "enter":
				// Enter commits the currently selected option (m.remote)
				return m.nextStep()
			case "ctrl+c", "q":
				m.settings.Completed = true
				m.settings.ServerURL = ""
				m.status = "Setup canceled. Using the local database."
				m.step = stepDone
				return m, tea.Quit
			default:
				// Swallow any other keys silently (no error flash)
				return m, nil
			}
		case stepServer:
			switch msg.String() {
			case "enter":
				url := strings.TrimSpace(m.urlInput.Value())
				if url == "" {
					m.settings.ServerURL = ""
					m.status = "No address entered. Using the local database."
				} else {
					if !strings.Contains(url, "://") {
						url = "http://" + url
					}
					m.settings.ServerURL = url
					m.status = "Remote server saved."
				}
				m.step = stepDone
				return m, tea.Quit
			case "esc":
				m.settings.ServerURL = ""
				m.status = "Skipped server setup. Using the local database."
				m.step = stepDone
				return m, tea.Quit
			case "ctrl+c", "q":
				m.settings.ServerURL = ""
				m.status = "Setup canceled. Using the local database."
				m.step = stepDone
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.urlInput, cmd = m.urlInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) nextStep() (tea.Model, tea.Cmd) {
	if !m.remote {
		m.settings.ServerURL = ""
		m.status = "Using the local database."
		m.step = stepDone
		return m, tea.Quit
	}
	if m.existingServer != "" {
		m.settings.ServerURL = m.existingServer
		m.status = "Using existing ATLAS_SERVER from environment/flags."
		m.step = stepDone
		return m, tea.Quit
	}
	m.step = stepServer
	return m, nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := height - 6
	if contentHeight < 8 {
		contentHeight = 8
	}
	content := m.renderContent(width, contentHeight)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("atlas") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	modeTab := obTabInactive.Render("Storage")
	serverTab := obTabInactive.Render("Server Address")
	if m.step == stepMode {
		modeTab = obTabActive.Render("Storage")
	}
	if m.step == stepServer {
		serverTab = obTabActive.Render("Server Address")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", modeTab, serverTab))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepMode:
		return obFooterStyle.Width(width).Render("↑↓/jk to navigate  y/n enter to confirm  q cancel")
	case stepServer:
		return obFooterStyle.Width(width).Render("enter save  esc skip  q cancel")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepMode:
		question := obLabelStyle.Render("Where should atlas keep your places?")
		local := "Local database (recommended)"
		remote := "Remote atlas server"

		var localDisplay, remoteDisplay string
		if m.remote {
			localDisplay = "    " + obOptionStyle.Render(local)
			remoteDisplay = "  " + obOptionSelected.Render("→ "+remote)
		} else {
			localDisplay = "  " + obOptionSelected.Render("→ "+local)
			remoteDisplay = "    " + obOptionStyle.Render(remote)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			question,
			"",
			localDisplay,
			remoteDisplay,
			"",
			obMutedStyle.Render("Use arrow keys or j/k to navigate, y/n or Enter to confirm"),
			obMutedStyle.Render("You can change this later in ~/.atlas/onboarding.json"),
		)
	case stepServer:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.urlInput.View())
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Connect to a remote server:"),
			"",
			obMutedStyle.Render("Run \"atlas serve\" on the machine that owns the database,"),
			obMutedStyle.Render("then enter its address here."),
			"",
			obLabelStyle.Render("Server URL"),
			input,
			"",
			obMutedStyle.Render("Press Enter to save, Esc to use the local database."),
		)
	default:
		msg := obMutedStyle.Render(m.status)
		if strings.Contains(strings.ToLower(m.status), "canceled") {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Setup Complete"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func runOnboarding(configDir string, existingServer string) (OnboardingSettings, error) {
	model := newOnboardingModel(existingServer)
	prog := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
