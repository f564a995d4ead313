package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds server settings (from env / .env) and pipeline tunables
// (defaults, optionally overridden by a TOML file).
type Config struct {
	ServerPort        string
	TesseractDataPath string
	PaddleAPIURL      string
	MaxFileSize       int64
	Pipeline          PipelineConfig
}

// PipelineConfig are the extraction tunables.
type PipelineConfig struct {
	MinCellArea          int     `toml:"min_cell_area"`
	MinDotArea           int     `toml:"min_dot_area"`
	CircularityThreshold float64 `toml:"circularity_threshold"`
	MaxCells             int     `toml:"max_cells"`
	ConfidenceThreshold  float64 `toml:"confidence_threshold"`
	RestWeekday          string  `toml:"rest_weekday"`
	HolidayConfigPath    string  `toml:"holiday_config_path"`
	ExportDir            string  `toml:"export_dir"`
}

func defaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MinCellArea:          100,
		MinDotArea:           10,
		CircularityThreshold: 0.7,
		MaxCells:             100,
		ConfidenceThreshold:  0.5,
		RestWeekday:          "Saturday",
		HolidayConfigPath:    "config/holidays.json",
		ExportDir:            "exports",
	}
}

// LoadConfig reads .env (if present), environment variables and the
// optional pipeline TOML file named by PIPELINE_CONFIG (default
// "config.toml"). Missing files are fine; defaults apply.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		TesseractDataPath: getEnv("TESSDATA_PREFIX", "/usr/share/tesseract-ocr/5/tessdata/"),
		PaddleAPIURL:      getEnv("PADDLEOCR_API_URL", "http://paddleocr:8866/predict/ocr_system"),
		MaxFileSize:       32 << 20,
		Pipeline:          defaultPipelineConfig(),
	}

	tomlPath := getEnv("PIPELINE_CONFIG", "config.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		if err := toml.Unmarshal(data, &cfg.Pipeline); err != nil {
			log.Printf("Invalid pipeline config %s, keeping defaults: %v", tomlPath, err)
			cfg.Pipeline = defaultPipelineConfig()
		} else {
			log.Printf("Loaded pipeline config from %s", tomlPath)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
