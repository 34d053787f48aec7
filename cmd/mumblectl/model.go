package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yungbote/mumble-backend/pkg/client"
	"github.com/yungbote/mumble-backend/pkg/poller"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type captureArgs struct {
	file     string
	duration float64
	lat, lon float64
	style    string
	outDir   string
}

type stage int

const (
	stageUpload stage = iota
	stageTranscribe
	stageEnvironment
	stageGenerate
	stageRender
	stageExport
	stageDone
)

var stageLabels = map[stage]string{
	stageUpload:      "Uploading audio",
	stageTranscribe:  "Transcribing",
	stageEnvironment: "Enriching context",
	stageGenerate:    "Requesting image",
	stageRender:      "Generating image",
	stageExport:      "Exporting",
}

type (
	uploadedMsg    struct{ accepted *client.AudioAccepted }
	transcribedMsg struct{ status *client.AudioStatus }
	enrichedMsg    struct{ result *client.EnvironmentResult }
	requestedMsg   struct{ accepted *client.GenerateAccepted }
	renderedMsg    struct{ status *client.ImageStatus }
	exportedMsg    struct{ path string }
	attemptMsg     poller.Attempt
	failedMsg      struct {
		stage stage
		err   error
	}
)

type model struct {
	ctx      context.Context
	api      *client.Client
	poll     *poller.Poller
	attempts <-chan poller.Attempt
	args     captureArgs

	spinner spinner.Model
	stage   stage
	started time.Time
	attempt poller.Attempt
	notes   []string

	audioID   string
	requestID string
	err       error
}

func newModel(ctx context.Context, api *client.Client, poll *poller.Poller, attempts <-chan poller.Attempt, args captureArgs) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return model{
		ctx:      ctx,
		api:      api,
		poll:     poll,
		attempts: attempts,
		args:     args,
		spinner:  s,
		stage:    stageUpload,
		started:  time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.upload(), m.listenAttempts())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.err = context.Canceled
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case attemptMsg:
		m.attempt = poller.Attempt(msg)
		return m, m.listenAttempts()

	case uploadedMsg:
		m.audioID = msg.accepted.AudioID
		m.note(fmt.Sprintf("audio %s accepted (estimate %.1fs)", m.audioID, msg.accepted.EstimatedProcessingTime))
		m.advance(stageTranscribe)
		return m, m.waitAudio(msg.accepted)

	case transcribedMsg:
		text := ""
		if msg.status.Text != nil {
			text = *msg.status.Text
		}
		line := fmt.Sprintf("%q", text)
		if a := msg.status.Analysis; a != nil {
			line += dimStyle.Render(fmt.Sprintf("  sentiment=%s keywords=%s", a.Sentiment, strings.Join(a.Keywords, ",")))
		}
		m.note(line)
		m.advance(stageEnvironment)
		return m, m.enrich()

	case enrichedMsg:
		d := msg.result.EnrichedData
		m.note(fmt.Sprintf("%s, %s, %.0f°C, %s", d.Location.PlaceName, d.Weather.Condition, d.Weather.Temperature, d.Time.TimeOfDay))
		m.advance(stageGenerate)
		return m, m.generate(msg.result.EnvironmentID)

	case requestedMsg:
		m.requestID = msg.accepted.RequestID
		m.note(fmt.Sprintf("request %s queued (estimate %.0fs)", m.requestID, msg.accepted.EstimatedTime))
		m.advance(stageRender)
		return m, m.waitImage(msg.accepted)

	case renderedMsg:
		if msg.status.ImageURL != nil {
			m.note("image " + *msg.status.ImageURL)
		}
		if m.args.outDir == "" {
			m.advance(stageDone)
			return m, tea.Quit
		}
		m.advance(stageExport)
		return m, m.export(msg.status.ImageID)

	case exportedMsg:
		m.note("saved " + msg.path)
		m.advance(stageDone)
		return m, tea.Quit

	case failedMsg:
		m.stage = msg.stage
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) advance(s stage) {
	m.stage = s
	m.attempt = poller.Attempt{}
}

func (m *model) note(s string) {
	m.notes = append(m.notes, s)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("mumble") + dimStyle.Render("  device "+m.api.DeviceID()) + "\n\n")
	for s := stageUpload; s < stageDone; s++ {
		if s == stageExport && m.args.outDir == "" {
			continue
		}
		label := stageLabels[s]
		switch {
		case s < m.stage:
			b.WriteString(okStyle.Render("✓ ") + label + "\n")
		case s == m.stage && m.err != nil:
			b.WriteString(errorStyle.Render("✗ "+label+": "+describe(m.err)) + "\n")
		case s == m.stage:
			line := m.spinner.View() + " " + label
			if m.attempt.N > 0 {
				line += dimStyle.Render(fmt.Sprintf("  poll %d after %s", m.attempt.N, m.attempt.Delay.Round(10*time.Millisecond)))
			}
			b.WriteString(line + "\n")
		default:
			b.WriteString(dimStyle.Render("  "+label) + "\n")
		}
	}
	if len(m.notes) > 0 {
		b.WriteString("\n")
		for _, n := range m.notes {
			b.WriteString("  " + n + "\n")
		}
	}
	if m.stage == stageDone {
		b.WriteString("\n" + okStyle.Render(fmt.Sprintf("done in %s", time.Since(m.started).Round(time.Second))) + "\n")
	}
	return b.String()
}

func describe(err error) string {
	var remote *poller.RemoteError
	switch {
	case errors.As(err, &remote):
		return "server reported: " + remote.Message
	case errors.Is(err, poller.ErrPollTimeout):
		return "timed out waiting for the server"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}

func (m model) listenAttempts() tea.Cmd {
	ch := m.attempts
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return attemptMsg(a)
	}
}

func (m model) upload() tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(m.args.file)
		if err != nil {
			return failedMsg{stageUpload, err}
		}
		accepted, err := m.api.UploadAudio(m.ctx, m.args.file, data, m.args.duration)
		if err != nil {
			return failedMsg{stageUpload, err}
		}
		return uploadedMsg{accepted}
	}
}

func (m model) waitAudio(accepted *client.AudioAccepted) tea.Cmd {
	return func() tea.Msg {
		st, err := m.poll.WaitAudio(m.ctx, m.api, accepted)
		if err != nil {
			return failedMsg{stageTranscribe, err}
		}
		return transcribedMsg{st}
	}
}

func (m model) enrich() tea.Cmd {
	return func() tea.Msg {
		now := time.Now()
		res, err := m.api.SubmitEnvironment(m.ctx, client.EnvironmentInput{
			Location:  client.Coordinates{Latitude: m.args.lat, Longitude: m.args.lon},
			Device:    map[string]any{"client": "mumblectl"},
			Timestamp: &now,
		})
		if err != nil {
			return failedMsg{stageEnvironment, err}
		}
		return enrichedMsg{res}
	}
}

func (m model) generate(environmentID string) tea.Cmd {
	return func() tea.Msg {
		accepted, err := m.api.GenerateImage(m.ctx, client.GenerateInput{
			AudioID:         m.audioID,
			EnvironmentID:   environmentID,
			StylePreference: m.args.style,
		})
		if err != nil {
			return failedMsg{stageGenerate, err}
		}
		return requestedMsg{accepted}
	}
}

func (m model) waitImage(accepted *client.GenerateAccepted) tea.Cmd {
	return func() tea.Msg {
		st, err := m.poll.WaitImage(m.ctx, m.api, accepted)
		if err != nil {
			return failedMsg{stageRender, err}
		}
		return renderedMsg{st}
	}
}

func (m model) export(imageID string) tea.Cmd {
	return func() tea.Msg {
		data, name, err := m.api.ExportImage(m.ctx, imageID)
		if err != nil {
			return failedMsg{stageExport, err}
		}
		if err := os.MkdirAll(m.args.outDir, 0o755); err != nil {
			return failedMsg{stageExport, err}
		}
		path := filepath.Join(m.args.outDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return failedMsg{stageExport, err}
		}
		return exportedMsg{path}
	}
}
