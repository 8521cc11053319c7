package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/akmonengine/feather2d"
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/config"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
)

// SceneFunc fills an empty world
type SceneFunc func(world *feather2d.World) error

var scenes = map[string]SceneFunc{
	"drop":   dropScene,
	"pile":   pileScene,
	"bullet": bulletScene,
}

// BodyFrame is the state of a body sent to the viewer
type BodyFrame struct {
	ID    actor.BodyID `json:"id"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Angle float64      `json:"angle"`
	Awake bool         `json:"awake"`
}

// Frame is one simulation step sent to the viewer
type Frame struct {
	Step   int         `json:"step"`
	Bodies []BodyFrame `json:"bodies"`
	Stats  StatsFrame  `json:"stats"`
}

type StatsFrame struct {
	ContactsUpdated int     `json:"contactsUpdated"`
	Islands         int     `json:"islands"`
	ToiEvents       int     `json:"toiEvents"`
	MinSeparation   float64 `json:"minSeparation"`
}

func main() {
	sceneName := flag.String("scene", "drop", "scene to run: drop, pile or bullet")
	steps := flag.Int("steps", 300, "number of steps to run without -ws")
	confPath := flag.String("conf", "", "step configuration JSON file, defaults when empty")
	addr := flag.String("ws", "", "serve frames over a websocket on this address, e.g. :8080")
	verbose := flag.Bool("v", false, "log every step")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scene, ok := scenes[*sceneName]
	if !ok {
		logger.Error("unknown scene", "scene", *sceneName)
		os.Exit(2)
	}

	conf := config.Default()
	if *confPath != "" {
		var err error
		if conf, err = config.LoadFile(*confPath); err != nil {
			logger.Error("load configuration", "error", err)
			os.Exit(1)
		}
	}

	newWorld := func() (*feather2d.World, error) {
		world, err := feather2d.NewWorld(conf)
		if err != nil {
			return nil, err
		}
		world.Logger = logger
		if err := scene(world); err != nil {
			return nil, fmt.Errorf("scene %s: %w", *sceneName, err)
		}
		return world, nil
	}

	if *addr != "" {
		serve(*addr, newWorld, logger)
		return
	}

	world, err := newWorld()
	if err != nil {
		logger.Error("create world", "error", err)
		os.Exit(1)
	}
	subscribeEvents(world, logger)

	for step := range *steps {
		stats := world.Step()
		if step%60 == 59 {
			printFrame(buildFrame(world, step, stats))
		}
	}
}

func subscribeEvents(world *feather2d.World, logger *slog.Logger) {
	world.Subscribe(feather2d.CONTACT_BEGIN, func(event feather2d.Event) {
		e := event.(feather2d.ContactBeginEvent)
		logger.Info("contact begin", "bodyA", e.BodyA, "bodyB", e.BodyB)
	})
	world.Subscribe(feather2d.ON_SLEEP, func(event feather2d.Event) {
		logger.Info("sleep", "body", event.(feather2d.SleepEvent).Body)
	})
}

func buildFrame(world *feather2d.World, step int, stats feather2d.StepStats) Frame {
	frame := Frame{
		Step: step,
		Stats: StatsFrame{
			ContactsUpdated: stats.Pre.Updated,
			Islands:         stats.Reg.IslandsFound,
			ToiEvents:       stats.Toi.ContactsFound,
			MinSeparation:   stats.Reg.MinSeparation,
		},
	}
	world.Bodies(func(body *actor.RigidBody) bool {
		if body.BodyType == actor.BodyTypeStatic {
			return true
		}
		frame.Bodies = append(frame.Bodies, BodyFrame{
			ID:    body.ID,
			X:     body.Position().X(),
			Y:     body.Position().Y(),
			Angle: body.Angle(),
			Awake: body.IsAwake(),
		})
		return true
	})
	return frame
}

func printFrame(frame Frame) {
	fmt.Printf("--- step %d ---\n", frame.Step+1)
	for _, body := range frame.Bodies {
		fmt.Printf("  body %d: position (%.3f, %.3f) angle %.3f awake %v\n", body.ID, body.X, body.Y, body.Angle, body.Awake)
	}
}

// serve runs a fresh world for each websocket client and streams one frame per step, in real time
func serve(addr string, newWorld func() (*feather2d.World, error), logger *slog.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		world, err := newWorld()
		if err != nil {
			message := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
			conn.WriteMessage(websocket.CloseMessage, message)
			return
		}

		ticker := time.NewTicker(time.Duration(world.Conf().Dt * float64(time.Second)))
		defer ticker.Stop()

		for step := 0; ; step++ {
			<-ticker.C
			data, err := json.Marshal(buildFrame(world, step, world.Step()))
			if err != nil {
				logger.Error("marshal frame", "error", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Info("client gone", "remote", r.RemoteAddr, "steps", step)
				return
			}
		}
	})

	logger.Info("serving frames", "addr", addr, "path", "/ws")
	if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// =============================================================================
// Scenes
// =============================================================================

func createBox(world *feather2d.World, bodyType actor.BodyType, position mgl64.Vec2, hx, hy float64) (actor.BodyID, error) {
	def := actor.DefaultBodyDef(bodyType)
	def.Position = position
	id, err := world.CreateBody(def)
	if err != nil {
		return actor.NullBody, err
	}
	box, err := actor.NewBox(hx, hy)
	if err != nil {
		return actor.NullBody, err
	}
	if _, err := world.CreateFixture(id, actor.DefaultFixtureDef(box)); err != nil {
		return actor.NullBody, err
	}
	return id, nil
}

func createGround(world *feather2d.World) error {
	_, err := createBox(world, actor.BodyTypeStatic, mgl64.Vec2{0, -0.5}, 20, 0.5)
	return err
}

// dropScene drops a unit box from a height of 10 onto the ground
func dropScene(world *feather2d.World) error {
	if err := createGround(world); err != nil {
		return err
	}
	_, err := createBox(world, actor.BodyTypeDynamic, mgl64.Vec2{0, 10}, 0.5, 0.5)
	return err
}

// pileScene stacks three columns of ten boxes
func pileScene(world *feather2d.World) error {
	if err := createGround(world); err != nil {
		return err
	}
	for column := range 3 {
		for row := range 10 {
			position := mgl64.Vec2{float64(column)*2 - 2, 0.5 + float64(row)*1.05}
			if _, err := createBox(world, actor.BodyTypeDynamic, position, 0.5, 0.5); err != nil {
				return err
			}
		}
	}
	return nil
}

// bulletScene fires a small fast circle at a thin wall
func bulletScene(world *feather2d.World) error {
	conf := world.Conf()
	conf.Gravity = mgl64.Vec2{}
	conf.MaxTranslation = 200
	if err := world.SetConf(conf); err != nil {
		return err
	}

	if _, err := createBox(world, actor.BodyTypeStatic, mgl64.Vec2{}, 0.025, 2); err != nil {
		return err
	}

	def := actor.DefaultBodyDef(actor.BodyTypeDynamic)
	def.Position = mgl64.Vec2{-1, 0}
	def.LinearVelocity = mgl64.Vec2{100 / conf.Dt, 0}
	def.Bullet = true
	id, err := world.CreateBody(def)
	if err != nil {
		return err
	}
	circle, err := actor.NewCircle(mgl64.Vec2{}, 0.05)
	if err != nil {
		return err
	}
	_, err = world.CreateFixture(id, actor.DefaultFixtureDef(circle))
	return err
}
