package bank

// Names used by the default VPS2 bank.
const (
	EventStartup  = "VPS2/VPS2/startup"
	EventDings    = "VPS2/VPS2/dings"
	EventRollover = "VPS2/VPS2/rollover"
	EventBall     = "VPS2/VPS2/bouncyBall"
	EventFlipper  = "VPS2/VPS2/flipper"
	EventMessage  = "VPS2/VPS2/message"

	CueAndroid = "android"
	CueBass    = "bass"
	CueDrLoop1 = "drloop1"
	CueDrLoop2 = "drloop2"
	CueDrLoop3 = "drloop3"

	ParamBassSequence = "bassSequence"

	SegmentAndroid1 = 1
)

// DefaultManifestName is the manifest file looked up at the media path root.
const DefaultManifestName = "VPS2.json"

// Default returns the VPS2 layout: six bumper dings, a rollover ding in E
// that is pitched per note, three misc one-shots, the android theme, three
// bass variations and three drum loops.
func Default() *Manifest {
	return &Manifest{
		Name: "VPS2",
		Events: map[string]Event{
			EventStartup: {Files: []string{"misc/startup1.ogg"}},
			EventDings: {Files: []string{
				"bumper/xdinga1.ogg",
				"bumper/xdingc1.ogg",
				"bumper/xdingc2.ogg",
				"bumper/xdingd1.ogg",
				"bumper/xdinge1.ogg",
				"bumper/xdingg1.ogg",
			}},
			EventRollover: {Files: []string{"rollover/rolloverE1.ogg"}},
			EventBall:     {Files: []string{"misc/andBounce2.ogg"}},
			EventFlipper:  {Files: []string{"misc/flipper1.ogg"}},
			EventMessage:  {Files: []string{"misc/message2.ogg"}},
		},
		Cues: map[string]Cue{
			CueAndroid: {Segments: []Segment{
				{ID: SegmentAndroid1, Name: "android1", File: "music/android1.ogg"},
			}},
			CueBass: {
				Loop:      true,
				Parameter: ParamBassSequence,
				Segments: []Segment{
					{ID: 10, Name: "bass1", File: "music/bass1.ogg"},
					{ID: 11, Name: "bass2", File: "music/bass2.ogg"},
					{ID: 12, Name: "bass3", File: "music/bass3.ogg"},
				},
			},
			CueDrLoop1: {Loop: true, Segments: []Segment{{ID: 20, Name: "drloop1", File: "music/drloop1.ogg"}}},
			CueDrLoop2: {Loop: true, Segments: []Segment{{ID: 21, Name: "drloop2", File: "music/drloop2.ogg"}}},
			CueDrLoop3: {Loop: true, Segments: []Segment{{ID: 22, Name: "drloop3", File: "music/drloop3.ogg"}}},
		},
		Parameters: map[string]Param{
			ParamBassSequence: {Min: 0, Max: 2, Default: 0},
		},
	}
}
