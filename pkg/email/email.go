// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"corretor_backend/internal/model"
)

const resendEndpoint = "https://api.resend.com/emails"

type EmailService struct {
	apiKey    string
	from      string
	notifyTo  string
	endpoint  string
	client    *http.Client
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type LeadNotificationData struct {
	LeadID        uint
	LeadName      string
	LeadEmail     string
	LeadPhone     string
	LeadMessage   string
	Source        string
	PropertyTitle string
	ReceivedAt    time.Time
}

func NewEmailService(apiKey, from, notifyTo string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	if from == "" {
		from = "Corretor das Mansões <contato@corretordasmansoes.com>"
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      from,
		notifyTo:  notifyTo,
		endpoint:  resendEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	log.Printf("[EMAIL] %q sent to %s", subject, to)
	return nil
}

func (s *EmailService) SendWelcomeEmail(email, name string) error {
	data := WelcomeEmailData{
		Name: name,
	}
	return s.sendTemplateEmail(email, "Bem-vindo ao painel do corretor", "welcome.html", data)
}

// SendLeadNotificationEmail tells the brokerage a new lead arrived from the
// public site. It is a no-op when no notify address is configured.
func (s *EmailService) SendLeadNotificationEmail(lead model.Lead, message string) error {
	if s.notifyTo == "" {
		return nil
	}

	data := LeadNotificationData{
		LeadID:      lead.ID,
		LeadName:    lead.Name,
		LeadEmail:   lead.Email,
		LeadPhone:   lead.Phone,
		LeadMessage: message,
		Source:      string(lead.Source),
		ReceivedAt:  lead.CreatedAt,
	}
	if lead.InterestedProperty != nil {
		data.PropertyTitle = lead.InterestedProperty.Title
	}

	return s.sendTemplateEmail(s.notifyTo, fmt.Sprintf("Novo lead: %s", lead.Name), "lead_notification.html", data)
}
