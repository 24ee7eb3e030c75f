// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		missing = append(missing, "MINIO_ACCESS_KEY/MINIO_SECRET_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// ValidateKYC checks the simulation knobs are usable.
func (c *Config) ValidateKYC() error {
	rates := map[string]float64{
		"KYC_PROFILE_FAILURE_RATE":  c.KYC.ProfileFailureRate,
		"KYC_IDENTITY_FAILURE_RATE": c.KYC.IdentityFailureRate,
		"KYC_VEHICLE_FAILURE_RATE":  c.KYC.VehicleFailureRate,
	}
	for key, rate := range rates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", key, rate)
		}
	}
	if c.KYC.VerificationDelay < 0 {
		return fmt.Errorf("KYC_VERIFICATION_DELAY must not be negative")
	}
	return nil
}
