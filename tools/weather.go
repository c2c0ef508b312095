package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const WeatherToolName = "fetch_weather_data"

const (
	UnitsCelsius    = "celsius"
	UnitsFahrenheit = "fahrenheit"
)

// WeatherReport is the simulated weather payload. Only the temperature and
// timestamp vary between calls.
type WeatherReport struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Units       string `json:"units"`
	Conditions  string `json:"conditions"`
	Humidity    string `json:"humidity"`
	WindSpeed   string `json:"windSpeed"`
	LastUpdated string `json:"lastUpdated"`
}

func WeatherDefinition() mcptypes.Tool {
	return mcptypes.NewTool(WeatherToolName,
		mcptypes.WithDescription("Fetch weather information for a specific location"),
		mcptypes.WithString("location",
			mcptypes.Required(),
			mcptypes.Description("The city or location to get weather for"),
		),
		mcptypes.WithString("units",
			mcptypes.Description("Temperature units"),
			mcptypes.Enum(UnitsCelsius, UnitsFahrenheit),
			mcptypes.DefaultString(UnitsCelsius),
		),
	)
}

func NewWeatherTool(latency time.Duration, requireApproval bool) Tool {
	return Tool{
		Definition: WeatherDefinition(),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return FetchWeather(ctx, latency, args)
		},
		RequiresApproval: requireApproval,
	}
}

// FetchWeather waits for latency, then returns a report for the requested
// location. Units default to celsius.
func FetchWeather(ctx context.Context, latency time.Duration, args map[string]any) (WeatherReport, error) {
	location, _ := args["location"].(string)
	if strings.TrimSpace(location) == "" {
		return WeatherReport{}, fmt.Errorf("location is required")
	}

	units := UnitsCelsius
	if raw, ok := args["units"]; ok && raw != nil {
		s, isString := raw.(string)
		if !isString || (s != UnitsCelsius && s != UnitsFahrenheit) {
			return WeatherReport{}, fmt.Errorf("invalid units %v: must be celsius or fahrenheit", raw)
		}
		units = s
	}

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return WeatherReport{}, ctx.Err()
		case <-timer.C:
		}
	}

	report := WeatherReport{
		Location:    location,
		Units:       units,
		Conditions:  "Sunny",
		Humidity:    "12%",
		LastUpdated: time.Now().Format(time.RFC3339),
	}
	if units == UnitsCelsius {
		report.Temperature = rand.IntN(35) + 5
		report.WindSpeed = "35 km/h"
	} else {
		report.Temperature = rand.IntN(63) + 41
		report.WindSpeed = "35 mph"
	}
	return report, nil
}
