package nlp

// Lexicon holds every keyword/numeral table the pipeline consults. It is
// a plain data structure, not hard-coded switch-cases, so kanji-numeral
// coverage (and every other surface-form list) is configurable per spec
// §9's open question on kanji-numeral normalization.
type Lexicon struct {
	KanjiDigits map[rune]int
	KanjiUnits  map[rune]int

	ConnectVerbs    []string
	DisconnectVerbs []string
	TakeoffVerbs    []string
	LandVerbs       []string
	MoveVerbs       []string
	RotateVerbs     []string
	AltitudeVerbs   []string
	PhotoVerbs      []string
	VideoStartVerbs []string
	VideoStopVerbs  []string
	StatusVerbs     []string
	EmergencyVerbs  []string
	HelpVerbs       []string

	Directions       map[string]string // surface form -> canonical direction
	RotationDirs     map[string]string // surface form -> clockwise|counter_clockwise
	CentimeterUnits  []string
	MeterUnits       []string
	DegreeUnits      []string

	ConjunctionMarkers []string // clause-boundary markers (spec §4.2 pt 6)
	DroneIDPrefixes    []string // e.g. "ドローン" before an id token
}

// DefaultLexicon returns the built-in coverage: kanji numerals 一..十,
// 百, 千, plus the direction/verb/unit surface forms needed by the
// spec's worked examples in both Japanese and English.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		KanjiDigits: map[rune]int{
			'〇': 0, '零': 0, '一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
			'六': 6, '七': 7, '八': 8, '九': 9,
		},
		KanjiUnits: map[rune]int{
			'十': 10, '百': 100, '千': 1000,
		},

		ConnectVerbs:    []string{"接続して", "接続する", "接続", "connect"},
		DisconnectVerbs: []string{"切断して", "切断する", "切断", "disconnect"},
		TakeoffVerbs:    []string{"離陸して", "離陸する", "離陸", "takeoff", "take off"},
		LandVerbs:       []string{"着陸して", "着陸する", "着陸", "land"},
		MoveVerbs:       []string{"移動して", "移動する", "移動", "move"},
		RotateVerbs:     []string{"回転して", "回転する", "回転", "旋回して", "旋回", "rotate", "turn"},
		AltitudeVerbs:   []string{"高度", "altitude"},
		PhotoVerbs:      []string{"写真を撮って", "撮影して", "写真", "撮影", "photo", "take_photo", "take a photo"},
		VideoStartVerbs: []string{"録画開始", "録画を開始して", "start recording", "video_start"},
		VideoStopVerbs:  []string{"録画停止", "録画を停止して", "stop recording", "video_stop"},
		StatusVerbs:     []string{"状態", "ステータス", "status"},
		EmergencyVerbs:  []string{"緊急停止", "緊急着陸", "emergency stop", "emergency_stop"},
		HelpVerbs:       []string{"ヘルプ", "help"},

		Directions: map[string]string{
			"前進": "forward", "前": "forward", "forward": "forward",
			"後退": "back", "後ろ": "back", "back": "back",
			"左": "left", "left": "left",
			"右": "right", "right": "right",
			"上昇": "up", "上": "up", "up": "up",
			"下降": "down", "下": "down", "down": "down",
		},
		RotationDirs: map[string]string{
			"時計回り": "clockwise", "右回り": "clockwise", "clockwise": "clockwise",
			"反時計回り": "counter_clockwise", "左回り": "counter_clockwise",
			"counter_clockwise": "counter_clockwise", "counter-clockwise": "counter_clockwise",
		},
		CentimeterUnits: []string{"センチメートル", "センチ", "cm"},
		MeterUnits:      []string{"メートル", "m"},
		DegreeUnits:     []string{"度", "degree", "deg"},

		ConjunctionMarkers: []string{"て", "、", ",", " and "},
		DroneIDPrefixes:    []string{"ドローン"},
	}
}
