package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/BioHazard786/Warpcall/cli/internal/call"
	"github.com/BioHazard786/Warpcall/cli/internal/config"
	"github.com/BioHazard786/Warpcall/cli/internal/ui"
	"github.com/BioHazard786/Warpcall/cli/internal/webrtc"
	"github.com/spf13/cast"
)

func LoadConfig() (*config.Config, error) {
	opts := config.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
		VideoFile:  flagVideo,
		AudioFile:  flagAudio,
	}
	if flagTimeout != "" {
		d, err := cast.ToDurationE(flagTimeout)
		if err != nil {
			return nil, call.WrapError("load config", err, "--timeout")
		}
		opts.Timeout = d
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, call.NewError("load config", err)
	}
	return cfg, nil
}

// runCall creates a room when code is empty and joins code otherwise, then
// stays in the call until the user ends it.
func runCall(ctx context.Context, code string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	runner, err := call.NewRunner(cfg, &webrtc.FileSource{
		VideoPath: cfg.VideoFile,
		AudioPath: cfg.AudioFile,
	}, deviceName())
	if err != nil {
		return err
	}
	defer runner.Close()

	if cfg.ForceRelay {
		ui.PrintInfo("Relay mode: media goes through the TURN server")
	}
	if cfg.Timeout > 0 {
		ui.PrintInfof("Connection attempts give up after %s", cfg.Timeout)
	}

	sp := ui.NewConnectionSpinner("Starting camera and microphone...")
	sp.Start()
	if err := runner.StartMedia(); err != nil {
		sp.Error("Media unavailable")
		return err
	}

	sp.UpdateMessage("Connecting to server...")
	if err := runner.Connect(ctx); err != nil {
		sp.Error("Connection failed")
		return err
	}

	if code == "" {
		sp.UpdateMessage("Creating room...")
		room, err := runner.CreateRoom(ctx)
		if err != nil {
			sp.Error("Could not create room")
			return err
		}
		sp.Stop()
		fmt.Println(ui.NewRoomInfo(room).View())
	} else {
		sp.UpdateMessage("Joining room " + code + "...")
		if err := runner.JoinRoom(ctx, code); err != nil {
			sp.Error("Could not join room")
			return err
		}
		sp.Success("Joined room " + runner.Room())
	}

	err = runner.Run(ctx)
	summary := runner.Summary()
	ui.RenderCallSummary(summary)
	if err == nil {
		if summary.Duration == 0 {
			ui.PrintWarning("No call was established")
		} else {
			ui.PrintSuccess("Call ended")
		}
	}
	return err
}

func deviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "warpcall-cli"
	}
	return "warpcall-cli@" + host
}
