package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/perkloop/surveydata/app"
	"github.com/perkloop/surveydata/config"
	"github.com/perkloop/surveydata/log"
	"github.com/perkloop/surveydata/model"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("main.app:", err)
	}
	defer a.Close()

	err = runCommand(ctx, a, flag.Args())
	if err != nil {
		log.Fatal("main.run:", err)
	}
}

func runCommand(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return print(a.GetAllSurveys(ctx))
	}

	switch cmd := args[0]; cmd {
	case "list":
		return print(a.GetAllSurveys(ctx))
	case "active":
		return print(a.GetActiveSurveys(ctx))
	case "get":
		return print(a.GetSurveyByID(ctx, arg(args, 1)))
	case "create":
		var survey model.Survey
		if err := json.NewDecoder(os.Stdin).Decode(&survey); err != nil {
			return err
		}
		if err := survey.Validate(); err != nil {
			return err
		}
		return print(a.CreateSurvey(ctx, survey))
	case "update":
		var patch model.SurveyPatch
		if err := json.NewDecoder(os.Stdin).Decode(&patch); err != nil {
			return err
		}
		return print(a.UpdateSurvey(ctx, arg(args, 1), patch))
	case "delete":
		return print(a.DeleteSurvey(ctx, arg(args, 1)))
	case "toggle":
		active, err := strconv.ParseBool(arg(args, 2))
		if err != nil {
			return err
		}
		return print(a.ToggleSurveyStatus(ctx, arg(args, 1), active))
	case "submit":
		var resp model.SurveyResponse
		if err := json.NewDecoder(os.Stdin).Decode(&resp); err != nil {
			return err
		}
		return print(a.SubmitResponse(ctx, resp))
	case "responses":
		return print(a.GetSurveyResponses(ctx, arg(args, 1)))
	case "completed":
		return print(a.HasUserCompletedSurvey(ctx, arg(args, 1), arg(args, 2)))
	default:
		log.Warnf("main: unknown command %q", cmd)
		return print(a.GetAllSurveys(ctx))
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
