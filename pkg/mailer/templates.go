package mailer

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
	"time"
)

type emailTemplate struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

func newTemplate(subject, text, html string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		text:    template.Must(template.New("text").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New("html").Parse(html)),
	}
}

func (t emailTemplate) render(to string, data interface{}) (Message, error) {
	var subject, text, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, err
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}

var (
	welcomeTemplate = newTemplate(
		`Welcome to VortexBoard, {{.Name}}!`,
		"Hi {{.Name}},\n\nYour VortexBoard account is ready. Create your first board to get started.\n",
		`<h2>Welcome, {{.Name}}!</h2><p>Your VortexBoard account is ready. Create your first board to get started.</p>`,
	)
	taskAssignedTemplate = newTemplate(
		`New task assigned: {{.TaskTitle}}`,
		"Hi {{.Name}},\n\n{{.ActorName}} assigned you \"{{.TaskTitle}}\" on board {{.BoardName}}.\n",
		`<p>Hi {{.Name}},</p><p>{{.ActorName}} assigned you <strong>{{.TaskTitle}}</strong> on board <em>{{.BoardName}}</em>.</p>`,
	)
	boardSharedTemplate = newTemplate(
		`{{.ActorName}} shared "{{.BoardName}}" with you`,
		"Hi {{.Name}},\n\n{{.ActorName}} added you to board {{.BoardName}} with {{.Permission}} access.\n",
		`<p>Hi {{.Name}},</p><p>{{.ActorName}} added you to board <strong>{{.BoardName}}</strong> with {{.Permission}} access.</p>`,
	)
	mentionTemplate = newTemplate(
		`{{.ActorName}} mentioned you on {{.TaskTitle}}`,
		"Hi {{.Name}},\n\n{{.ActorName}} mentioned you in a comment on \"{{.TaskTitle}}\":\n\n{{.Excerpt}}\n",
		`<p>Hi {{.Name}},</p><p>{{.ActorName}} mentioned you in a comment on <strong>{{.TaskTitle}}</strong>:</p><blockquote>{{.Excerpt}}</blockquote>`,
	)
	dueReminderTemplate = newTemplate(
		`{{if .Overdue}}Overdue{{else}}Due soon{{end}}: {{.TaskTitle}}`,
		"Hi {{.Name}},\n\n\"{{.TaskTitle}}\" on board {{.BoardName}} {{if .Overdue}}was due{{else}}is due{{end}} {{.Due}}.\n",
		`<p>Hi {{.Name}},</p><p><strong>{{.TaskTitle}}</strong> on board <em>{{.BoardName}}</em> {{if .Overdue}}was due{{else}}is due{{end}} {{.Due}}.</p>`,
	)
)

func WelcomeEmail(to, name string) (Message, error) {
	return welcomeTemplate.render(to, struct{ Name string }{name})
}

func TaskAssignedEmail(to, name, actorName, taskTitle, boardName string) (Message, error) {
	return taskAssignedTemplate.render(to, struct {
		Name, ActorName, TaskTitle, BoardName string
	}{name, actorName, taskTitle, boardName})
}

func BoardSharedEmail(to, name, actorName, boardName, permission string) (Message, error) {
	return boardSharedTemplate.render(to, struct {
		Name, ActorName, BoardName, Permission string
	}{name, actorName, boardName, permission})
}

// MentionEmail truncates the comment to a short excerpt.
func MentionEmail(to, name, actorName, taskTitle, comment string) (Message, error) {
	excerpt := comment
	if r := []rune(excerpt); len(r) > 200 {
		excerpt = string(r[:200]) + "..."
	}
	return mentionTemplate.render(to, struct {
		Name, ActorName, TaskTitle, Excerpt string
	}{name, actorName, taskTitle, excerpt})
}

func DueReminderEmail(to, name, taskTitle, boardName string, due time.Time, overdue bool) (Message, error) {
	return dueReminderTemplate.render(to, struct {
		Name, TaskTitle, BoardName, Due string
		Overdue                         bool
	}{name, taskTitle, boardName, due.UTC().Format("Mon, 02 Jan 2006 15:04 MST"), overdue})
}
