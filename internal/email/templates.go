package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template keys the fixed set of outbound email kinds.
type Template string

const (
	TemplateRequestCreated          Template = "request_created"
	TemplateStatusUpdate            Template = "status_update"
	TemplateRequestAssigned         Template = "request_assigned"
	TemplateNoteAdded               Template = "note_added"
	TemplateAttachmentUploaded      Template = "attachment_uploaded"
	TemplateAssignmentChangeRequest Template = "assignment_change_request"
	TemplateAssignmentChangeReview  Template = "assignment_change_reviewed"
	TemplateDueDateReminder         Template = "due_date_reminder"
	TemplatePasswordReset           Template = "password_reset"
)

// UserType controls phrasing: agents see operational wording, customers see
// service wording.
type UserType string

const (
	UserTypeAgent    UserType = "agent"
	UserTypeCustomer UserType = "customer"
)

// TemplateData is the structured payload a template renders from.
type TemplateData struct {
	RecipientName string
	UserType      UserType
	QueueID       string
	InsuredName   string
	Status        string
	Detail        string
	ActorName     string
	ResetToken    string
}

type templateDef struct {
	subjectAgent    string
	subjectCustomer string
	bodyAgent       string
	bodyCustomer    string
}

var templates = map[Template]templateDef{
	TemplateRequestCreated: {
		subjectAgent:    "New service request {{.QueueID}}",
		subjectCustomer: "We received your service request {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\nA new service request {{.QueueID}} for insured {{.InsuredName}} is in the queue.\n{{.Detail}}",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nYour service request {{.QueueID}} regarding {{.InsuredName}} has been received and will be handled shortly.",
	},
	TemplateStatusUpdate: {
		subjectAgent:    "Request {{.QueueID}} status: {{.Status}}",
		subjectCustomer: "Update on your request {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\nRequest {{.QueueID}} moved to status {{.Status}}.\n{{.Detail}}",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nThe status of your request {{.QueueID}} is now {{.Status}}.",
	},
	TemplateRequestAssigned: {
		subjectAgent:    "Request {{.QueueID}} assigned to you",
		subjectCustomer: "An agent is working your request {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\nService request {{.QueueID}} for insured {{.InsuredName}} has been assigned to you.",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nAn agent has been assigned to your request {{.QueueID}}.",
	},
	TemplateNoteAdded: {
		subjectAgent:    "New note on request {{.QueueID}}",
		subjectCustomer: "New update on your request {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\n{{.ActorName}} added a note on request {{.QueueID}}:\n\n{{.Detail}}",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nThere is a new update on your request {{.QueueID}}:\n\n{{.Detail}}",
	},
	TemplateAttachmentUploaded: {
		subjectAgent:    "New attachment on request {{.QueueID}}",
		subjectCustomer: "New document on your request {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\n{{.ActorName}} uploaded {{.Detail}} to request {{.QueueID}}.",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nA document ({{.Detail}}) was added to your request {{.QueueID}}.",
	},
	TemplateAssignmentChangeRequest: {
		subjectAgent:    "Assignment change requested for {{.QueueID}}",
		subjectCustomer: "Assignment change requested for {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\n{{.ActorName}} requested an assignment change on request {{.QueueID}}.\nReason: {{.Detail}}",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nA reassignment of request {{.QueueID}} has been proposed.",
	},
	TemplateAssignmentChangeReview: {
		subjectAgent:    "Assignment change {{.Status}} for {{.QueueID}}",
		subjectCustomer: "Assignment change {{.Status}} for {{.QueueID}}",
		bodyAgent:       "Hi {{.RecipientName}},\n\nYour assignment change request on {{.QueueID}} was {{.Status}}.\n{{.Detail}}",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nThe proposed reassignment of request {{.QueueID}} was {{.Status}}.",
	},
	TemplateDueDateReminder: {
		subjectAgent:    "Request {{.QueueID}} is due soon",
		subjectCustomer: "Your request {{.QueueID}} is due soon",
		bodyAgent:       "Hi {{.RecipientName}},\n\nService request {{.QueueID}} for insured {{.InsuredName}} is approaching its due date: {{.Detail}}.",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nYour request {{.QueueID}} is approaching its due date: {{.Detail}}.",
	},
	TemplatePasswordReset: {
		subjectAgent:    "Reset your password",
		subjectCustomer: "Reset your password",
		bodyAgent:       "Hi {{.RecipientName}},\n\nUse this token to reset your password: {{.ResetToken}}\n\nIf you did not request a reset, ignore this message.",
		bodyCustomer:    "Hi {{.RecipientName}},\n\nUse this token to reset your password: {{.ResetToken}}\n\nIf you did not request a reset, ignore this message.",
	},
}

// Render resolves a template into subject, HTML and plain bodies. The
// UserType discriminator selects agent or customer phrasing.
func Render(template Template, data TemplateData) (subject, htmlBody, plainBody string, err error) {
	def, ok := templates[template]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", template)
	}

	subjectSrc := def.subjectCustomer
	bodySrc := def.bodyCustomer
	if data.UserType == UserTypeAgent {
		subjectSrc = def.subjectAgent
		bodySrc = def.bodyAgent
	}

	subject, err = renderText(string(template)+"_subject", subjectSrc, data)
	if err != nil {
		return "", "", "", err
	}
	plainBody, err = renderText(string(template)+"_body", bodySrc, data)
	if err != nil {
		return "", "", "", err
	}
	htmlBody, err = renderHTML(string(template)+"_html", bodySrc, data)
	if err != nil {
		return "", "", "", err
	}
	return subject, "<html><body><p>" + htmlBody + "</p></body></html>", plainBody, nil
}

func renderText(name, src string, data TemplateData) (string, error) {
	tmpl, err := texttemplate.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, src string, data TemplateData) (string, error) {
	tmpl, err := htmltemplate.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
