package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RegistrationConfig struct {
		Storage         string // postgres | memory
		RemoteTimeout   time.Duration
		NotificationTTL time.Duration
	}

	Config struct {
		Env                    string // DEV (local; default), TEST, QA, PROD
		Build                  string
		Debug                  bool
		TestMode               bool
		AppName                string
		SecretKey              string
		RollbarToken           string
		SendgridApiKey         string
		NotificationRecipients []string

		defaultFromEmail string

		Server       ServerConfig
		Database     DatabaseConfig
		Registration RegistrationConfig
	}
)

// Address returns the host:port the database listens on.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NotificationRecipientAddresses parses the configured recipients, skipping the invalid ones.
func (conf *Config) NotificationRecipientAddresses() []mail.Address {
	addrs := make([]mail.Address, 0, len(conf.NotificationRecipients))
	for _, r := range conf.NotificationRecipients {
		if addr, err := mail.ParseAddress(CleanString(r)); err == nil {
			addrs = append(addrs, *addr)
		}
	}
	return addrs
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Registrar")
	v.SetDefault("secretKey", "zq3v-8ad!k2x#m%0w@7d&fo(r1n$+u9)j=5e4c*h6g_pb")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("notificationRecipients", []string{})

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "registrar")
	v.SetDefault("database.user", "registrar")
	v.SetDefault("database.password", "registrar")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("registration.storage", "postgres")
	v.SetDefault("registration.remoteTimeout", 10*time.Second)
	v.SetDefault("registration.notificationTTL", 30*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("registration.storage", "memory")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:                    env,
		Build:                  v.GetString("build"),
		Debug:                  v.GetBool("debug"),
		TestMode:               v.GetBool("testMode"),
		AppName:                v.GetString("appName"),
		SecretKey:              v.GetString("secretKey"),
		RollbarToken:           v.GetString("rollbarToken"),
		SendgridApiKey:         v.GetString("sendgridApiKey"),
		NotificationRecipients: v.GetStringSlice("notificationRecipients"),
		defaultFromEmail:       v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Registration: RegistrationConfig{
			Storage:         CleanString(v.GetString("registration.storage"), true /* lower */),
			RemoteTimeout:   v.GetDuration("registration.remoteTimeout"),
			NotificationTTL: v.GetDuration("registration.notificationTTL"),
		},
	}
}
