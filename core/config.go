package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug     bool
	TestMode  bool
	Env       string // DEV (local; default), TEST, QA, PROD
	Build     string
	AppName   string
	SecretKey string

	Server struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	FileStore struct {
		Backend   string // "disk" (default) | "s3"
		Root      string // disk: base directory
		Bucket    string // s3
		Region    string // s3
		AccessKey string // s3; default credential chain when empty
		SecretKey string // s3
		Endpoint  string // s3; for MinIO and the like
	}

	RollbarToken string
}

// Address returns the "host:port" the API server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DatabaseAddress returns the "host:port" of the configured database server.
func (c *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("secretKey", "w@y2*vq0p#5cr8t3&9!fmz^ju6(h+x)dke4_ns7$ygb1%lo-aq")
	conf.SetDefault("build", "dev")
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "0.0.0.0:9000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "darasa")
	conf.SetDefault("dbUser", "darasa")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("fileStoreBackend", "disk")
	conf.SetDefault("fileStoreRoot", filepath.Join(os.TempDir(), "darasa", "media"))
	conf.SetDefault("fileStoreBucket", "")
	conf.SetDefault("fileStoreRegion", "")
	conf.SetDefault("fileStoreAccessKey", "")
	conf.SetDefault("fileStoreSecretKey", "")
	conf.SetDefault("fileStoreEndpoint", "")
	conf.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:     conf.GetBool("debug"),
		TestMode:  env == "TEST",
		Env:       env,
		Build:     conf.GetString("build"),
		AppName:   conf.GetString("appName"),
		SecretKey: conf.GetString("secretKey"),
	}
	c.Server.Host = conf.GetString("serverHost")
	c.Server.Port = conf.GetInt("serverPort")
	c.Server.DebugHost = conf.GetString("serverDebugHost")
	c.Server.ShutdownTimeout = conf.GetDuration("serverShutdownTimeout")
	c.Server.JWTExpirationDelta = conf.GetDuration("jwtExpirationDelta")
	c.Server.JWTRefreshExpirationDelta = conf.GetDuration("jwtRefreshExpirationDelta")
	c.Database.Engine = conf.GetString("dbEngine")
	c.Database.Name = conf.GetString("dbName")
	c.Database.User = conf.GetString("dbUser")
	c.Database.Password = conf.GetString("dbPassword")
	c.Database.AdminUser = conf.GetString("dbAdminUser")
	c.Database.AdminPassword = conf.GetString("dbAdminPassword")
	c.Database.Host = conf.GetString("dbHost")
	c.Database.Port = conf.GetInt("dbPort")
	c.Database.DisableTLS = conf.GetBool("dbDisableTLS")
	c.FileStore.Backend = conf.GetString("fileStoreBackend")
	c.FileStore.Root = conf.GetString("fileStoreRoot")
	c.FileStore.Bucket = conf.GetString("fileStoreBucket")
	c.FileStore.Region = conf.GetString("fileStoreRegion")
	c.FileStore.AccessKey = conf.GetString("fileStoreAccessKey")
	c.FileStore.SecretKey = conf.GetString("fileStoreSecretKey")
	c.FileStore.Endpoint = conf.GetString("fileStoreEndpoint")
	c.RollbarToken = conf.GetString("rollbarToken")
	return c
}
