package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"nextbot/internal/assistant"
	"nextbot/internal/bridge"
	"nextbot/internal/ipc"
	"nextbot/internal/session"
	"nextbot/internal/speech"
	"nextbot/internal/store"
	"nextbot/internal/voice"
	"nextbot/pkg/audioconv"
	"nextbot/pkg/events"
	"nextbot/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const maxFileSamples = 16000 * 60 * 5 // five minutes at 16 kHz

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	dbPath := cli.StringP("db", "d", "nextbot.db", "Persistence database path")
	busURL := cli.StringP("bus", "b", "", "UI event bus websocket url (empty disables)")
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	model := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-base.bin", "Whisper model path")
	chime := cli.StringP("chime", "c", "assets/chime.mp3", "Reminder chime sound")
	espeakBin := cli.String("espeak", "espeak-ng", "Speech synthesis binary")
	bridgeURL := cli.String("bridge", "", "Desktop bridge url (empty disables)")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the bridge")
	lang := cli.String("lang", "EN", "Startup content language (EN, ES, FR, DE)")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	settings := session.FromEnv()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Error("Failed to open store", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	log.Debug("Loaded store", "path", *dbPath)

	var brid *bridge.Client
	if *bridgeURL != "" {
		brid, err = bridge.New(*bridgeURL, *proxyAddr)
		if err != nil {
			log.Error("Failed to set up bridge", "url", *bridgeURL, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded bridge", "url", *bridgeURL)
	}

	var bus *events.Bus
	if *busURL != "" {
		bus, err = events.NewBus(*busURL, 2*time.Second)
		if err != nil {
			log.Error("Failed to dial event bus", "url", *busURL, "err", err)
			os.Exit(1)
		}
		defer bus.Close()
		log.Debug("Loaded event bus", "url", *busURL)
	}

	rec, err := speech.NewRecorder()
	if err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(*model)
	if err != nil {
		log.Error("Failed to init whisper", "model", *model, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper", "model", *model)

	var a *assistant.Assistant
	engine := speech.NewWhisperEngine(rec, whisper, func() string { return a.RecognitionLang() })

	a = assistant.New(assistant.Config{
		Store:     st,
		Synth:     voice.NewEspeak(*espeakBin),
		Engine:    engine,
		Bus:       busSink(bus),
		Bridge:    brid,
		Settings:  settings,
		Lang:      *lang,
		ChimePath: *chime,
	})
	engine.Bind(a.Capture())

	if err := ipc.StartServer(*socket, func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case "say":
			a.SubmitText(msg.Arg)
		case "mic":
			a.ToggleMic()
		case "clear":
			a.ClearTranscript()
		case "lang":
			a.SetLanguage(msg.Arg)
		case "task-toggle":
			if i, err := strconv.Atoi(msg.Arg); err == nil {
				a.ToggleTask(i)
			}
		case "task-delete":
			if i, err := strconv.Atoi(msg.Arg); err == nil {
				a.DeleteTask(i)
			}
		case "reminder-delete":
			a.DeleteReminder(msg.Arg)
		case "transcribe-file":
			go transcribeFile(a, whisper, msg.Arg)
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded control socket", "path", *socket)

	if bus != nil {
		go readBus(bus, a)
	}

	log.Info("Boot up - successful")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Start()
	a.Run(ctx)

	log.Info("Shutting down")
}

// busSink avoids handing the assistant a typed nil interface.
func busSink(bus *events.Bus) assistant.EventSink {
	if bus == nil {
		return nil
	}
	return bus
}

func readBus(bus *events.Bus, a *assistant.Assistant) {
	for {
		ev, err := bus.Read()
		if err != nil {
			log.Error("Event bus read failed", "err", err)
			return
		}
		a.HandleEvent(*ev)
	}
}

func transcribeFile(a *assistant.Assistant, tr *stt.Transcriber, path string) {
	pcm, err := audioconv.DecodeFile(path, maxFileSamples)
	if err != nil {
		log.Error("Failed to decode audio file", "path", path, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := tr.TranscribePCM(ctx, pcm, stt.Options{
		Language: a.RecognitionLang(),
		Threads:  0,
	})
	if err != nil {
		log.Error("Failed to transcribe file", "path", path, "err", err)
		return
	}

	log.Info("Transcribed file", "path", path, "text", res.Text)
	a.SubmitText(res.Text)
}
