package styles

import "github.com/charmbracelet/lipgloss"

var (
	Accent    = lipgloss.Color("205")
	Primary   = lipgloss.Color("62")
	Muted     = lipgloss.Color("241")
	Light     = lipgloss.Color("230")
	ErrorRed  = lipgloss.Color("196")
	OKGreen   = lipgloss.Color("42")
	WarnAmber = lipgloss.Color("214")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(Primary).
			Foreground(Light)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			PaddingLeft(1)

	ButtonStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Background(lipgloss.Color("237")).
			Foreground(Light)

	ButtonFocusedStyle = ButtonStyle.
				Background(Accent)

	ButtonDimmedStyle = ButtonStyle.
				Bold(false).
				Foreground(Muted)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent)

	KeyDimmedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ListItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	ListItemSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(Accent)

	ListItemDisabledStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(Muted).
				Strikethrough(true)

	ListDetailStyle = lipgloss.NewStyle().
			Foreground(Muted)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	CardFocusedStyle = CardStyle.
				BorderForeground(Accent)

	StatusIdleStyle       = lipgloss.NewStyle().Foreground(Muted)
	StatusProcessingStyle = lipgloss.NewStyle().Foreground(WarnAmber)
	StatusReadyStyle      = lipgloss.NewStyle().Foreground(OKGreen)
	StatusErrorStyle      = lipgloss.NewStyle().Foreground(ErrorRed)

	UserMessageStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("81"))

	FailedMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorRed)

	MetaStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	NoticeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ErrorRed).
			Foreground(Light)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarnAmber)

	FatalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ErrorRed).
			Padding(1, 3)

	InputLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(16)
)
