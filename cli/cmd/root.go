package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/Warpcall/cli/internal/call"
	"github.com/BioHazard786/Warpcall/cli/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagVideo    string
	flagAudio    string
	flagTimeout  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "warpcall",
	Short:   "Peer-to-peer audio and video calls over WebRTC",
	Long:    `Warpcall connects two people in a direct WebRTC call. One side creates a room and shares its six character code; the other joins with that code. The signaling server only pairs the two and relays the connection setup, media flows peer to peer.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		call.PrintErr(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "Signaling server URL or host")
	pf.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	pf.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	pf.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	pf.StringVar(&flagVideo, "video", "", "IVF (VP8) file to stream as the camera")
	pf.StringVar(&flagAudio, "audio", "", "Ogg (Opus) file to stream as the microphone")
	pf.StringVar(&flagTimeout, "timeout", "", "Give up on a connection attempt after this long, e.g. 30s")
}
