package storage

import (
	"mailhaven/config"
)

// Provider labels assigned by domain detection.
const (
	ProviderGmail   = "Gmail"
	ProviderICloud  = "iCloud"
	ProviderOutlook = "Outlook"
	ProviderTitan   = "Titan"
	ProviderIAM     = "i.AM Mail" // default label for unrecognized domains
)

type providerHosts struct {
	provider string
	imapHost string
	smtpHost string
}

// knownProviders maps well-known mail domains to their fixed host pairs.
var knownProviders = map[string]providerHosts{
	"gmail.com":   {ProviderGmail, "imap.gmail.com", "smtp.gmail.com"},
	"icloud.com":  {ProviderICloud, "imap.mail.me.com", "smtp.mail.me.com"},
	"me.com":      {ProviderICloud, "imap.mail.me.com", "smtp.mail.me.com"},
	"outlook.com": {ProviderOutlook, "outlook.office365.com", "smtp-mail.outlook.com"},
	"hotmail.com": {ProviderOutlook, "outlook.office365.com", "smtp-mail.outlook.com"},
	"titan.email": {ProviderTitan, "imap.titan.email", "smtp.titan.email"},
}

// Default ports, implicit TLS on both protocols.
const (
	DefaultIMAPPort = 993
	DefaultSMTPPort = 465
)

// DetectProvider labels an email address by its domain. Unrecognized
// domains get the platform label.
func DetectProvider(email string) string {
	domain := config.GetDomainFromEmail(email)
	if p, ok := knownProviders[domain]; ok {
		return p.provider
	}
	return ProviderIAM
}

// resolveHosts picks the IMAP/SMTP host pair for an address: fixed
// tables for known providers, the platform-managed pair for accounts
// created through the IAM flow, and imap.<domain>/smtp.<domain>
// guesses for everything else.
func resolveHosts(email string, createdViaIAM bool, platform config.PlatformConfig) (imapHost, smtpHost string) {
	domain := config.GetDomainFromEmail(email)
	if p, ok := knownProviders[domain]; ok {
		return p.imapHost, p.smtpHost
	}
	if createdViaIAM {
		return platform.IMAPHost, platform.SMTPHost
	}
	return "imap." + domain, "smtp." + domain
}
