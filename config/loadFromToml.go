package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/uno-framework/uno/ulog"
)

// TomlFile overrides the default uno.toml lookup (next to the binary).
// The serve command sets it from --config.
var TomlFile string

func configFilePath() string {
	if TomlFile != "" {
		return TomlFile
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), "uno.toml")
}

func LoadConfigFromToml() {
	tomlFile := configFilePath()
	if tomlFile == "" {
		return
	}
	if _, err := toml.DecodeFile(tomlFile, &Cfg); err == nil {
		ulog.Info().Str("filename", tomlFile).Msg("LoadConfigFromToml success")
		return
	} else if _, statErr := os.Stat(tomlFile); statErr == nil {
		//file exists but with bad format
		ulog.Error().Err(err).Str("filename", tomlFile).Msg("LoadConfigFromToml failed, see uno.demo.toml for the expected format")
	}
	writeDemoConfig(filepath.Join(filepath.Dir(tomlFile), "uno.demo.toml"))
}

func writeDemoConfig(demoFile string) {
	demo := Cfg
	demo.Redis = append([]ConfigRedis{}, ConfigRedis{Name: "default", Username: "uno", Password: "yourpasswordhere", Host: "localhost", Port: 6379, DB: 0})
	demo.Postgres = ConfigPostgres{Host: "localhost", Port: 5432, User: "uno", Password: "yourpasswordhere", DBName: "uno", SSLMode: "disable"}

	writer, err := os.OpenFile(demoFile, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		ulog.Error().Err(err).Str("filename", demoFile).Msg("save demo toml config file failed")
		return
	}
	defer writer.Close()
	if err := toml.NewEncoder(writer).Encode(demo); err != nil {
		ulog.Error().Err(err).Str("filename", demoFile).Msg("toml encode demo config file failed")
	}
}
