package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"sync"

	"github.com/cbegin/vpsaudio-go"
	intaudio "github.com/cbegin/vpsaudio-go/internal/audio"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW      = 900
	windowH      = 600
	uiSampleRate = 44100

	// ebiten runs Update at 60 TPS; three frames is the 50ms engine tick.
	ticksPerUpdate = 3

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	maxLogLines = 8
)

var (
	bgColor         = color.RGBA{192, 192, 192, 255}
	panelColor      = color.RGBA{192, 192, 192, 255}
	borderColor     = color.RGBA{128, 128, 128, 255}
	activeColor     = color.RGBA{0, 0, 128, 255}
	bevelLight      = color.RGBA{255, 255, 255, 255}
	bevelDarker     = color.RGBA{64, 64, 64, 255}
	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
	meterColor      = color.RGBA{40, 200, 90, 255}
	meterHotColor   = color.RGBA{230, 60, 40, 255}
)

// pad is one trigger button and its keyboard shortcut.
type pad struct {
	label  string
	key    ebiten.Key
	action string
	// message, when set, goes through PlayMessage instead of action.
	message string
}

var pads = []pad{
	{label: "Start [S]", key: ebiten.KeyS, action: vpsaudio.ActionStart},
	{label: "Score [Space]", key: ebiten.KeySpace, action: vpsaudio.ActionScore},
	{label: "Rollover [R]", key: ebiten.KeyR, action: vpsaudio.ActionRollover},
	{label: "Ball [B]", key: ebiten.KeyB, action: vpsaudio.ActionBall},
	{label: "Flipper [F]", key: ebiten.KeyF, action: vpsaudio.ActionFlipper},
	{label: "Message [M]", key: ebiten.KeyM, message: "Multiball"},
	{label: "Game Over [G]", key: ebiten.KeyG, message: "Game Over"},
	{label: "Bass [1]", key: ebiten.Key1, action: vpsaudio.ActionBass},
	{label: "Drums [2]", key: ebiten.Key2, action: vpsaudio.ActionDrums},
	{label: "Android [3]", key: ebiten.Key3, action: vpsaudio.ActionAndroid},
}

// meterOutput plays through the device and keeps the recent peak for the
// level meter.
type meterOutput struct {
	device *intaudio.Device

	mu   sync.Mutex
	peak float64
}

type meterSource struct {
	src vpsaudio.SampleSource
	m   *meterOutput
}

func (s meterSource) Process(dst []float32) {
	s.src.Process(dst)
	var peak float64
	for _, v := range dst {
		peak = max(peak, math.Abs(float64(v)))
	}
	s.m.mu.Lock()
	s.m.peak = max(peak, s.m.peak*0.9)
	s.m.mu.Unlock()
}

func (m *meterOutput) Start(source vpsaudio.SampleSource) error {
	return m.device.Start(meterSource{src: source, m: m})
}

func (m *meterOutput) Close() error { return m.device.Close() }

func (m *meterOutput) Peak() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

type game struct {
	bridge *vpsaudio.Bridge
	events <-chan vpsaudio.Event
	meter  *meterOutput

	volume         float64
	draggingVolume bool
	pressed        int
	pressedTick    int

	log       []string
	status    string
	statusErr bool
	frameTick int

	textCache map[string]*ebiten.Image
}

func newGame(media, manifest string) (*game, error) {
	meter := &meterOutput{device: intaudio.NewDevice(uiSampleRate, 256*8)}
	b, err := vpsaudio.NewBridge(
		vpsaudio.WithSampleRate(uiSampleRate),
		vpsaudio.WithManifest(manifest),
		vpsaudio.WithOutput(meter),
	)
	if err != nil {
		return nil, err
	}
	g := &game{
		bridge:    b,
		events:    b.Watch(),
		meter:     meter,
		volume:    1,
		pressed:   -1,
		textCache: make(map[string]*ebiten.Image, 256),
	}
	if err := b.InitSession(media); err != nil {
		return nil, err
	}
	g.setStatus("Session open: " + media)
	return g, nil
}

func (g *game) Update() error {
	g.frameTick++
	if g.frameTick%ticksPerUpdate == 0 {
		if err := g.bridge.Tick(); err != nil {
			g.setError(err.Error())
		}
	}
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := layoutRects()
	for i, p := range pads {
		fill := panelColor
		if g.pressed == i && g.frameTick-g.pressedTick < 10 {
			fill = activeColor
		}
		g.drawButton(screen, l.pads[i], p.label, fill)
	}
	g.drawSunkenPanel(screen, l.state)
	g.drawState(screen, l.state)
	g.drawSunkenPanel(screen, l.log)
	g.drawLog(screen, l.log)
	g.drawMeter(screen, l.meter)
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func (g *game) Close() {
	if err := g.bridge.EndSession(); err != nil {
		log.Print(err)
	}
}

func (g *game) pollEvents() {
	for {
		select {
		case ev := <-g.events:
			if ev.Kind == vpsaudio.EventSegmentEnded {
				continue
			}
			g.log = append(g.log, ev.String())
			if len(g.log) > maxLogLines {
				g.log = g.log[len(g.log)-maxLogLines:]
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	for i, p := range pads {
		if inpututil.IsKeyJustPressed(p.key) {
			g.fire(i)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		g.setVolume(g.volume + 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		g.setVolume(g.volume - 0.1)
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := layoutRects()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		for i, r := range l.pads {
			if pointInRect(mx, my, r) {
				g.fire(i)
				return
			}
		}
		if pointInRect(mx, my, l.volume) {
			g.draggingVolume = true
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.draggingVolume = false
	}
	if g.draggingVolume {
		trackX := l.volume.Min.X + 130
		trackW := l.volume.Dx() - 146
		g.setVolume(float64(mx-trackX) / float64(trackW))
	}
}

func (g *game) fire(i int) {
	p := pads[i]
	g.pressed = i
	g.pressedTick = g.frameTick
	var err error
	if p.message != "" {
		err = g.bridge.PlayMessage(p.message)
	} else {
		err = g.bridge.Do(p.action)
	}
	if err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus(p.label)
}

func (g *game) setVolume(v float64) {
	g.volume = clamp(v, 0, 1)
	g.bridge.SetMasterVolume(g.volume)
}

type uiLayout struct {
	pads   []image.Rectangle
	state  image.Rectangle
	log    image.Rectangle
	meter  image.Rectangle
	volume image.Rectangle
	status image.Rectangle
}

func layoutRects() uiLayout {
	const (
		margin = 12
		cols   = 5
		padH   = 56
	)
	var l uiLayout
	padW := (windowW - margin*(cols+1)) / cols
	for i := range pads {
		x := margin + (i%cols)*(padW+margin)
		y := margin + (i/cols)*(padH+margin)
		l.pads = append(l.pads, image.Rect(x, y, x+padW, y+padH))
	}
	top := margin + 2*(padH+margin)
	half := (windowW - 3*margin) / 2
	l.state = image.Rect(margin, top, margin+half, top+200)
	l.log = image.Rect(2*margin+half, top, windowW-margin, top+200)
	top += 200 + margin
	l.meter = image.Rect(margin, top, windowW-margin, top+40)
	top += 40 + margin
	l.volume = image.Rect(margin, top, windowW-margin, top+40)
	l.status = image.Rect(margin, windowH-margin-lineH-12, windowW-margin, windowH-margin)
	return l
}

func (g *game) drawState(screen *ebiten.Image, rect image.Rectangle) {
	st := g.bridge.State()
	lines := []string{
		fmt.Sprintf("Intro played: %v", st.IntroPlayed),
		fmt.Sprintf("Bass phase:   %d", st.BassPhase),
		fmt.Sprintf("Drum count:   %d", st.DrumCounter),
		fmt.Sprintf("Drum loops:   %s", st.DrumPattern),
		fmt.Sprintf("Scores:       %d", st.Scores),
		fmt.Sprintf("Voices:       %d", g.bridge.ActiveVoices()),
	}
	for i, s := range lines {
		g.drawText(screen, s, rect.Min.X+8, rect.Min.Y+6+i*lineH)
	}
}

func (g *game) drawLog(screen *ebiten.Image, rect image.Rectangle) {
	maxChars := max(8, (rect.Dx()-16)/charW)
	for i, s := range g.log {
		g.drawText(screen, shortenEnd(s, maxChars), rect.Min.X+8, rect.Min.Y+6+i*(lineH-6))
	}
}

func (g *game) drawMeter(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	peak := clamp(g.meter.Peak(), 0, 1)
	w := float64(rect.Dx()-8) * peak
	col := meterColor
	if peak > 0.9 {
		col = meterHotColor
	}
	ebitenutil.DrawRect(screen, float64(rect.Min.X+4), float64(rect.Min.Y+4), w, float64(rect.Dy()-8), col)
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(g.volume*100+0.5)), rect.Min.X+8, rect.Min.Y+8)

	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	fillW := int(float64(trackW) * g.volume)
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string, fill color.Color) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws an inset bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x+2), float64(y+2))
	op.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, op)
	op = &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func main() {
	media := flag.String("media", ".", "directory holding the sound bank")
	manifest := flag.String("manifest", "VPS2.json", "bank manifest inside -media")
	flag.Parse()

	g, err := newGame(*media, *manifest)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()
	if err := g.bridge.StartIntro(); err != nil {
		log.Print(err)
	}

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("vpsaudio trigger pad")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
