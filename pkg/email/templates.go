package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// ApprovalSubject is the subject line of the approval notification.
const ApprovalSubject = "แจ้งผลการนิเทศโรงเรียน"

var approvalTemplate = template.Must(template.New("approval").Parse(`
<h2>แจ้งผลการนิเทศโรงเรียน {{.SchoolName}}</h2>
<p>วันที่: {{.Date}}</p>
<p>ผลการนิเทศได้รับการอนุมัติแล้ว</p>
<a href="{{.Link}}">ดูรายละเอียด</a>
`))

// Approval holds the data for an approval notification.
type Approval struct {
	To            string
	SchoolName    string
	SupervisionID uuid.UUID
	Date          time.Time
	BaseURL       string
}

// ApprovalMessage renders the notification a school receives when one of its
// supervisions is approved.
func ApprovalMessage(a Approval) (Message, error) {
	var body bytes.Buffer
	err := approvalTemplate.Execute(&body, struct {
		SchoolName string
		Date       string
		Link       string
	}{
		SchoolName: a.SchoolName,
		Date:       ThaiDate(a.Date),
		Link:       fmt.Sprintf("%s/supervisions/%s", a.BaseURL, a.SupervisionID),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render approval email: %w", err)
	}

	return Message{
		To:      mail.Address{Name: a.SchoolName, Address: a.To},
		Subject: ApprovalSubject,
		HTML:    body.String(),
	}, nil
}

// ThaiDate formats t as d/m/yyyy in the Buddhist era.
func ThaiDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+543)
}
