package formatting

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
)

// Texts are sent with ParseModeHTML, so every user-provided string is escaped.

func sessionHeader(s *model.StudioSession) string {
	return fmt.Sprintf("🎼 <b>%s</b>\n📅 %s", html.EscapeString(s.StudioName), FormatSessionWhen(s))
}

func countsLine(c model.ResponseCounts) string {
	return fmt.Sprintf("✅ %d  🚫 %d  ⏳ %d", c.Confirmed, c.Declined, c.Pending)
}

// FormatInvitationCard is the student's view of one invitation.
func FormatInvitationCard(n service.Notification) string {
	var sb strings.Builder
	sb.WriteString(sessionHeader(n.Session))
	fmt.Fprintf(&sb, "\n👤 Professor: %s", html.EscapeString(n.Session.ProfessorName))

	if n.Canceled {
		sb.WriteString("\n\n❌ <b>This session was canceled.</b>")
		if n.Session.CancelReason != "" {
			fmt.Fprintf(&sb, "\nReason: %s", html.EscapeString(n.Session.CancelReason))
		}
		return sb.String()
	}

	d := GetResponseStatusDisplay(n.MyStatus)
	fmt.Fprintf(&sb, "\n\nYour answer: %s %s", d.Emoji, d.Text)
	if n.CanRespond {
		sb.WriteString("\nWill you attend?")
	}
	return sb.String()
}

// FormatProfessorSession lists the students of a session with their answers.
func FormatProfessorSession(v service.ProfessorSessionView) string {
	var sb strings.Builder
	sb.WriteString(sessionHeader(v.Session))

	st := GetSessionStatusDisplay(v.Session.Status)
	fmt.Fprintf(&sb, "\n%s %s   %s", st.Emoji, st.Text, countsLine(v.Counts))
	if v.Session.Status == model.SessionStatusCanceled && v.Session.CancelReason != "" {
		fmt.Fprintf(&sb, "\nReason: %s", html.EscapeString(v.Session.CancelReason))
	}

	sb.WriteString("\n")
	for _, e := range v.Students {
		d := GetResponseStatusDisplay(e.Status)
		fmt.Fprintf(&sb, "\n%s %s", d.Emoji, html.EscapeString(e.Name))
		if e.Instrument != "" {
			fmt.Fprintf(&sb, " (%s)", html.EscapeString(e.Instrument))
		}
	}
	return sb.String()
}

// FormatProfessorSessionLine is one line of the /sessions overview.
func FormatProfessorSessionLine(v service.ProfessorSessionView) string {
	st := GetSessionStatusDisplay(v.Session.Status)
	return fmt.Sprintf("%s %s · %s · %s", st.Emoji, FormatSessionWhen(v.Session), v.Session.StudioName, countsLine(v.Counts))
}

// FormatStudentSessionLine is one line of a student's /sessions overview.
func FormatStudentSessionLine(s *model.StudioSession, studentID int64) string {
	if s.Status != model.SessionStatusActive {
		st := GetSessionStatusDisplay(s.Status)
		return fmt.Sprintf("%s %s · %s · %s", st.Emoji, FormatSessionWhen(s), html.EscapeString(s.StudioName), st.Text)
	}
	status, _ := s.StudentStatus(studentID)
	d := GetResponseStatusDisplay(status)
	return fmt.Sprintf("%s %s · %s · %s", d.Emoji, FormatSessionWhen(s), html.EscapeString(s.StudioName), d.Text)
}

// FormatResponseNotice tells the professor that a student answered.
func FormatResponseNotice(s *model.StudioSession, studentName string, status model.ResponseStatus) string {
	d := GetResponseStatusDisplay(status)
	return fmt.Sprintf("%s <b>%s</b> %s\n\n%s\n%s",
		d.Emoji,
		html.EscapeString(studentName),
		strings.ToLower(d.Text),
		sessionHeader(s),
		countsLine(s.Counts()),
	)
}

// FormatCancellationNotice tells a student that a session is off.
func FormatCancellationNotice(s *model.StudioSession) string {
	text := "❌ <b>Session canceled</b>\n\n" + sessionHeader(s)
	if s.CancelReason != "" {
		text += "\nReason: " + html.EscapeString(s.CancelReason)
	}
	return text
}
