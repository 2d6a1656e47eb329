package notify

import "strings"

const (
	emailSubject = "Application {{applicationRef}} received"
	emailBody    = "Dear {{firstName}},\n\n" +
		"Thank you for applying to the {{institution}}. Your application has been received " +
		"and will be reviewed by the admissions office.\n\n" +
		"Application number: {{applicationId}}\n" +
		"Reference: {{applicationRef}}\n\n" +
		"Please quote the reference in any correspondence.\n"
	smsBody = "Hi {{firstName}}, your {{institution}} application {{applicationRef}} " +
		"has been received. Application no. {{applicationId}}."
)

func institutionName(institution string) string {
	if institution == "" {
		return "institution"
	}
	return institution
}

// render fills the confirmation templates for msg.
func render(msg Message) (subject, body, sms string) {
	firstName := msg.FirstName
	if firstName == "" {
		firstName = "applicant"
	}
	r := strings.NewReplacer(
		"{{firstName}}", firstName,
		"{{institution}}", institutionName(msg.Institution),
		"{{applicationId}}", msg.ApplicationID,
		"{{applicationRef}}", msg.ApplicationRef,
	)
	return r.Replace(emailSubject), r.Replace(emailBody), r.Replace(smsBody)
}
