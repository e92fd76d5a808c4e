package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	twiliotransport "github.com/kaelos-ai/voicebridge/pkg/twilio"
	"github.com/kaelos-ai/voicebridge/pkg/voicebridge"
)

func main() {
	configPath := flag.String("config", "config.yaml", "")
	from := flag.String("from", "", "")
	to := flag.String("to", "", "")
	voiceURL := flag.String("voice_url", "", "")
	flag.Parse()
	if *from == "" || *to == "" {
		fmt.Println("usage: make_call -from=+123 -to=+456 [-config=...]")
		os.Exit(1)
	}
	cfg, err := voicebridge.LoadConfig(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	dialer := twiliotransport.NewDialer(cfg.Twilio)
	callSID, err := dialer.Dial(context.Background(), *to, *from, *voiceURL)
	if err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	fmt.Println("call_sid:", callSID)
}
