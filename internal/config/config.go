package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL"`

	WebhookSecret string `env:"WEBHOOK_SECRET" envDefault:"webhook-secret"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"jwt-secret"`

	Charge    Charge    `envPrefix:"CHARGE_"`
	Billing   Billing   `envPrefix:"BILLING_"`
	BrainTree Braintree `envPrefix:"BRAINTREE_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Charge struct {
	// Provider selects the charge backend: "simulated" or "braintree".
	Provider string `env:"PROVIDER" envDefault:"simulated"`
	// TimeoutSeconds bounds every provider call; on expiry the charge is
	// recorded as failed rather than left in limbo.
	TimeoutSeconds int `env:"TIMEOUT_SECONDS" envDefault:"10"`
}

type Billing struct {
	// Cron is the recurring-billing schedule, daily at midnight by default.
	Cron string `env:"CRON" envDefault:"0 0 * * *"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}
