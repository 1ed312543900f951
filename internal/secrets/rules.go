package secrets

// DefaultRules returns the built-in redaction rules in evaluation order.
//
// Order matters: a substring matched by an earlier rule is replaced with that
// rule's placeholder before later, more generic rules run. Provider-prefixed
// tokens and PEM blocks therefore come first and keyword assignments last.
func DefaultRules() []Rule {
	return []Rule{
		// Key material
		{
			ID:          "private-key",
			Description: "PEM private key block",
			Pattern:     `-----BEGIN [A-Z0-9 ]*PRIVATE KEY(?: BLOCK)?-----[\s\S]*?-----END [A-Z0-9 ]*PRIVATE KEY(?: BLOCK)?-----`,
			Severity:    "high",
		},
		{
			ID:          "private-key-header",
			Description: "Unterminated PEM private key header",
			Pattern:     `-----BEGIN [A-Z0-9 ]*PRIVATE KEY(?: BLOCK)?-----`,
			Severity:    "high",
		},

		// LLM providers. Anthropic precedes the broader sk- prefix.
		{
			ID:          "anthropic-api-key",
			Description: "Anthropic API Key",
			Pattern:     `sk-ant-[A-Za-z0-9_\-]{20,}`,
			Severity:    "high",
		},
		{
			ID:          "openai-api-key",
			Description: "OpenAI API Key",
			Pattern:     `sk-(?:proj-|svcacct-)?[A-Za-z0-9_\-]{32,}`,
			Severity:    "high",
		},

		// Source forges
		{
			ID:          "github-token",
			Description: "GitHub Personal Access Token",
			Pattern:     `ghp_[A-Za-z0-9]{36}`,
			Severity:    "high",
		},
		{
			ID:          "github-oauth",
			Description: "GitHub OAuth Access Token",
			Pattern:     `gho_[A-Za-z0-9]{36}`,
			Severity:    "high",
		},
		{
			ID:          "github-app",
			Description: "GitHub App Token",
			Pattern:     `(?:ghu|ghs|ghr)_[A-Za-z0-9]{36}`,
			Severity:    "high",
		},
		{
			ID:          "github-fine-grained",
			Description: "GitHub Fine-grained Personal Access Token",
			Pattern:     `github_pat_[A-Za-z0-9_]{22,}`,
			Severity:    "high",
		},
		{
			ID:          "gitlab-token",
			Description: "GitLab Personal Access Token",
			Pattern:     `glpat-[A-Za-z0-9\-_]{20,}`,
			Severity:    "high",
		},

		// SaaS prefixes
		{
			ID:          "slack-token",
			Description: "Slack Token",
			Pattern:     `xox[baprs]-[A-Za-z0-9\-]{10,}`,
			Severity:    "high",
		},
		{
			ID:          "slack-webhook",
			Description: "Slack Incoming Webhook URL",
			Pattern:     `https://hooks\.slack\.com/services/[A-Za-z0-9_/]+`,
			Severity:    "high",
		},
		{
			ID:          "stripe-key",
			Description: "Stripe API Key",
			Pattern:     `(?:sk|pk|rk)_(?:live|test)_[A-Za-z0-9]{24,}`,
			Severity:    "high",
		},
		{
			ID:          "sendgrid-api-key",
			Description: "SendGrid API Key",
			Pattern:     `SG\.[A-Za-z0-9_\-]{22,}\.[A-Za-z0-9_\-]{43,}`,
			Severity:    "high",
		},
		{
			ID:          "npm-token",
			Description: "npm Access Token",
			Pattern:     `npm_[A-Za-z0-9]{36}`,
			Severity:    "high",
		},
		{
			ID:          "twilio-api-key",
			Description: "Twilio API Key",
			Pattern:     `SK[0-9a-fA-F]{32}`,
			Keywords:    []string{"twilio"},
			Severity:    "high",
		},

		// Cloud providers
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `\b(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}\b`,
			Severity:    "high",
		},
		{
			ID:          "aws-secret-access-key",
			Description: "AWS Secret Access Key",
			Pattern:     `(?i)(?:aws_secret_access_key|aws_secret_key|secret_access_key)\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`,
			Severity:    "high",
		},
		{
			ID:          "google-api-key",
			Description: "Google API Key",
			Pattern:     `AIza[A-Za-z0-9_\-]{35}`,
			Severity:    "high",
		},
		{
			ID:          "google-oauth",
			Description: "Google OAuth Client Secret",
			Pattern:     `GOCSPX-[A-Za-z0-9_\-]{28}`,
			Severity:    "high",
		},
		{
			ID:          "azure-storage-key",
			Description: "Azure Storage Account Key",
			Pattern:     `(?i)(?:account_?key|storage_?key)\s*[:=]\s*['"]?[A-Za-z0-9+/]{86}==['"]?`,
			Keywords:    []string{"azure", "storage", "accountkey"},
			Severity:    "high",
		},
		{
			ID:          "heroku-api-key",
			Description: "Heroku API Key",
			Pattern:     `(?i)heroku[_-]?api[_-]?key\s*[:=]\s*['"]?[A-Fa-f0-9]{8}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{12}`,
			Keywords:    []string{"heroku"},
			Severity:    "high",
		},

		// Structured credentials
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `eyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]+`,
			Severity:    "medium",
		},
		{
			ID:          "database-url",
			Description: "Connection URL with embedded credentials",
			Pattern:     `(?i)\b(?:postgres(?:ql)?|mysql|mariadb|mongodb(?:\+srv)?|redis|rediss|amqps?)://[^\s:/@'"]+:[^\s@'"]+@[^\s'"]+`,
			Severity:    "high",
		},
		{
			ID:          "bearer-token",
			Description: "Bearer token",
			Pattern:     `(?i)\bbearer\s+[A-Za-z0-9_\-\.=+/]{20,}`,
			Severity:    "medium",
		},

		// Generic assignments, most generic last
		{
			ID:          "env-credential",
			Description: "Environment variable with credential",
			Pattern:     `(?i)\b(?:DB_PASSWORD|DATABASE_PASSWORD|MYSQL_PASSWORD|POSTGRES_PASSWORD|REDIS_PASSWORD|MONGO_PASSWORD|API_SECRET|APP_SECRET|SECRET_KEY|ENCRYPTION_KEY|PRIVATE_KEY|AUTH_TOKEN|ACCESS_TOKEN|REFRESH_TOKEN)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
			Severity:    "high",
		},
		{
			ID:          "generic-api-key",
			Description: "Generic API key assignment",
			Pattern:     `(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`,
			Severity:    "high",
		},
		{
			ID:          "generic-secret",
			Description: "Generic secret or password assignment",
			Pattern:     `(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
			Severity:    "high",
		},
	}
}
