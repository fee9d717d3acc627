package config

import "os"

func IsDebug() bool {
	return os.Getenv("TUSKNET_DEBUG") == "1"
}
