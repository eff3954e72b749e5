package govtalk

// GetERemindersRequest lists the e-reminder recipients registered for a
// company.
type GetERemindersRequest struct {
	CompanyNumber      string `xml:"CompanyNumber"`
	CompanyType        string `xml:"CompanyType,omitempty"`
	AuthenticationCode string `xml:"CompanyAuthenticationCode"`
}

// SetERemindersRequest replaces the registered recipient set.
type SetERemindersRequest struct {
	CompanyNumber      string   `xml:"CompanyNumber"`
	CompanyType        string   `xml:"CompanyType,omitempty"`
	AuthenticationCode string   `xml:"CompanyAuthenticationCode"`
	EmailAddresses     []string `xml:"EmailAddress"`
}

// EReminders is the response to either e-reminders request.
type EReminders struct {
	Recipients []Recipient `xml:"Recipient"`
}

type Recipient struct {
	EmailAddress string `xml:"EmailAddress"`
	Activated    bool   `xml:"Activated"`
}
