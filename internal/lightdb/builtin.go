package lightdb

// builtinDatabase returns the compiled-in fallback table, used when neither
// the remote source nor the disk cache is available. It mirrors the subset
// of the NeewerLite database covering the models the name table knows.
func builtinDatabase() *LightsFile {
	rgb3256 := func(t int) Capabilities {
		return Capabilities{
			Type:       t,
			SupportRGB: true,
			CCTRange:   &CCTRange{Min: 32, Max: 56},
			Support9FX: true,
		}
	}
	cct := func(t, min, max int) Capabilities {
		return Capabilities{Type: t, CCTRange: &CCTRange{Min: min, Max: max}}
	}
	modern := func(t int) Capabilities {
		return Capabilities{
			Type:                 t,
			SupportRGB:           true,
			CCTRange:             &CCTRange{Min: 27, Max: 65},
			SupportCCTGM:         true,
			Support17FX:          true,
			NewPowerLightCommand: true,
			NewRGBLightCommand:   true,
		}
	}

	return &LightsFile{
		Version: 2,
		Lights: []Capabilities{
			rgb3256(1),  // RGB530 PRO
			rgb3256(2),  // RGB480 PRO
			rgb3256(3),  // RGB660 PRO
			rgb3256(5),  // RGB176-A1
			rgb3256(6),  // RGB168
			rgb3256(8),  // RGB1
			modern(14),  // SL90
			cct(15, 27, 65), // CB60
			rgb3256(20), // RGB176
			{ // CB60B: bi-color with GM, MAC-addressed power
				Type:                 22,
				CCTRange:             &CCTRange{Min: 27, Max: 65},
				SupportCCTGM:         true,
				NewPowerLightCommand: true,
			},
			modern(25), // MS60C
			cct(26, 27, 65), // GL1
			cct(30, 27, 65), // FS150
			modern(32), // TL60
			{ // GL1 PRO
				Type:                 33,
				CCTRange:             &CCTRange{Min: 27, Max: 65},
				SupportCCTGM:         true,
				NewPowerLightCommand: true,
			},
			modern(34),  // SL90 PRO
			rgb3256(35), // SL80
			cct(36, 32, 56), // SL60
			rgb3256(37), // SL140
			rgb3256(38), // SL200
			modern(39),  // GL1C
			{ // RGB62: full color, no GM axis
				Type:                 40,
				SupportRGB:           true,
				CCTRange:             &CCTRange{Min: 27, Max: 65},
				Support17FX:          true,
				NewPowerLightCommand: true,
				NewRGBLightCommand:   true,
			},
			{ // MS150
				Type:                 41,
				CCTRange:             &CCTRange{Min: 27, Max: 65},
				NewPowerLightCommand: true,
			},
			modern(42), // BH-30S
			modern(62), // GR18C
		},
	}
}
