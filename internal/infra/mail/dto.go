package mail

import "html/template"

type followupEmailData struct {
	Subject string
	Content template.HTML
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}
