package dpt

// StandardCatalogue returns the built-in descriptors registered by
// NewStandardRegistry. The slice is freshly built on every call.
func StandardCatalogue() []Descriptor {
	return []Descriptor{
		dpt1(), dpt3(), dpt4(), dpt5(), dpt6(), dpt7(),
		dpt8(), dpt9(), dpt12(), dpt13(), dpt17(),
	}
}

func rng(lo, hi float64) *Range {
	return &Range{Min: lo, Max: hi}
}

func dpt1() Descriptor {
	return Descriptor{
		ID: "DPT1", Main: 1, BitLength: 1,
		Kind: KindBasic, Family: FamilyBoolean,
		Description: "1-bit value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Switch", Description: "switch (off/on)"},
			"002": {Name: "DPT_Bool", Description: "boolean (false/true)"},
			"003": {Name: "DPT_Enable", Description: "enable (disable/enable)"},
			"007": {Name: "DPT_Step", Description: "step (decrease/increase)"},
			"008": {Name: "DPT_UpDown", Description: "up/down"},
			"009": {Name: "DPT_OpenClose", Description: "open/close"},
			"010": {Name: "DPT_Start", Description: "start (stop/start)"},
			"017": {Name: "DPT_Trigger", Description: "trigger"},
		},
	}
}

func dpt3() Descriptor {
	return Descriptor{
		ID: "DPT3", Main: 3, BitLength: 4,
		Kind: KindComposite, Family: FamilyControl,
		Description: "4-bit relative control",
		Subtypes: map[string]Subtype{
			"007": {Name: "DPT_Control_Dimming", Description: "dimming control"},
			"008": {Name: "DPT_Control_Blinds", Description: "blinds control"},
		},
	}
}

func dpt4() Descriptor {
	return Descriptor{
		ID: "DPT4", Main: 4, BitLength: 8,
		Kind: KindBasic, Family: FamilyCharacter,
		Description: "8-bit character",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Char_ASCII", Description: "ASCII character (0-127)", Range: rng(0, 127)},
			"002": {Name: "DPT_Char_8859_1", Description: "ISO-8859-1 character (0-255)"},
		},
	}
}

func dpt5() Descriptor {
	return Descriptor{
		ID: "DPT5", Main: 5, BitLength: 8,
		Kind: KindBasic, Family: FamilyGeneric,
		Description: "8-bit unsigned value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Scaling", Description: "percent", Unit: "%", ScalarRange: rng(0, 100)},
			"003": {Name: "DPT_Angle", Description: "angle", Unit: "°", ScalarRange: rng(0, 360)},
			"004": {Name: "DPT_Percent_U8", Description: "percent (0-255)", Unit: "%"},
			"010": {Name: "DPT_Value_1_Ucount", Description: "counter pulses", Unit: "pulses"},
		},
	}
}

func dpt6() Descriptor {
	return Descriptor{
		ID: "DPT6", Main: 6, BitLength: 8,
		Kind: KindBasic, Family: FamilyGeneric, Signedness: Signed,
		Range:       rng(-128, 127),
		Description: "8-bit signed value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Percent_V8", Description: "percent", Unit: "%"},
			"010": {Name: "DPT_Value_1_Count", Description: "counter pulses", Unit: "pulses"},
		},
	}
}

func dpt7() Descriptor {
	return Descriptor{
		ID: "DPT7", Main: 7, BitLength: 16,
		Kind: KindBasic, Family: FamilyGeneric,
		Description: "16-bit unsigned value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Value_2_Ucount", Description: "pulses", Unit: "pulses"},
			"005": {Name: "DPT_TimePeriodSec", Description: "time (s)", Unit: "s"},
			"007": {Name: "DPT_TimePeriodHrs", Description: "time (h)", Unit: "h"},
			"012": {Name: "DPT_UElCurrentmA", Description: "current", Unit: "mA"},
			"013": {Name: "DPT_Brightness", Description: "brightness", Unit: "lux"},
		},
	}
}

func dpt8() Descriptor {
	return Descriptor{
		ID: "DPT8", Main: 8, BitLength: 16,
		Kind: KindBasic, Family: FamilyGeneric, Signedness: Signed,
		Description: "16-bit signed value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Value_2_Count", Description: "pulses", Unit: "pulses"},
			"005": {Name: "DPT_DeltaTimeSec", Description: "time lag (s)", Unit: "s"},
			"010": {Name: "DPT_Percent_V16", Description: "percent difference", Unit: "%"},
		},
	}
}

// dpt9 carries the 2-byte float subtypes. Range bounds are advisory.
func dpt9() Descriptor {
	return Descriptor{
		ID: "DPT9", Main: 9, BitLength: 16,
		Kind: KindBasic, Family: FamilyFloat16,
		Range:       rng(-671088.64, 670760.96),
		Description: "16-bit floating point value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Value_Temp", Description: "temperature", Unit: "°C", Range: rng(-273, 670760)},
			"002": {Name: "DPT_Value_Tempd", Description: "temperature difference", Unit: "°C", Range: rng(-670760, 670760)},
			"003": {Name: "DPT_Value_Tempa", Description: "kelvin/hour", Unit: "°K/h", Range: rng(-670760, 670760)},
			"004": {Name: "DPT_Value_Lux", Description: "lux", Unit: "lux", Range: rng(0, 670760)},
			"005": {Name: "DPT_Value_Wsp", Description: "wind speed", Unit: "m/s", Range: rng(0, 670760)},
			"006": {Name: "DPT_Value_Pres", Description: "pressure", Unit: "Pa", Range: rng(0, 670760)},
			"007": {Name: "DPT_Value_Humidity", Description: "humidity", Unit: "%", Range: rng(0, 670760)},
			"008": {Name: "DPT_Value_AirQuality", Description: "air quality", Unit: "ppm", Range: rng(0, 670760)},
			"010": {Name: "DPT_Value_Time1", Description: "time (s)", Unit: "s", Range: rng(-670760, 670760)},
			"011": {Name: "DPT_Value_Time2", Description: "time (ms)", Unit: "ms", Range: rng(-670760, 670760)},
			"020": {Name: "DPT_Value_Volt", Description: "voltage", Unit: "mV", Range: rng(-670760, 670760)},
			"021": {Name: "DPT_Value_Curr", Description: "current", Unit: "mA", Range: rng(-670760, 670760)},
			"022": {Name: "DPT_PowerDensity", Description: "power density", Unit: "W/m²", Range: rng(-670760, 670760)},
			"023": {Name: "DPT_KelvinPerPercent", Description: "kelvin/percent", Unit: "K/%", Range: rng(-670760, 670760)},
			"024": {Name: "DPT_Power", Description: "power", Unit: "kW", Range: rng(-670760, 670760)},
			"025": {Name: "DPT_Value_Volume_Flow", Description: "volume flow", Unit: "l/h", Range: rng(-670760, 670760)},
			"026": {Name: "DPT_Rain_Amount", Description: "rain amount", Unit: "l/m²", Range: rng(-670760, 670760)},
			"027": {Name: "DPT_Value_Temp_F", Description: "temperature (F)", Unit: "°F", Range: rng(-459.6, 670760)},
			"028": {Name: "DPT_Value_Wsp_kmh", Description: "wind speed (km/h)", Unit: "km/h", Range: rng(0, 670760)},
		},
	}
}

func dpt12() Descriptor {
	return Descriptor{
		ID: "DPT12", Main: 12, BitLength: 32,
		Kind: KindBasic, Family: FamilyGeneric,
		Description: "32-bit unsigned value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Value_4_Ucount", Description: "counter pulses", Unit: "pulses"},
		},
	}
}

func dpt13() Descriptor {
	return Descriptor{
		ID: "DPT13", Main: 13, BitLength: 32,
		Kind: KindBasic, Family: FamilyGeneric, Signedness: Signed,
		Description: "32-bit signed value",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_Value_4_Count", Description: "counter pulses", Unit: "pulses"},
			"010": {Name: "DPT_ActiveEnergy", Description: "active energy", Unit: "Wh"},
			"013": {Name: "DPT_ActiveEnergy_kWh", Description: "active energy", Unit: "kWh"},
		},
	}
}

func dpt17() Descriptor {
	return Descriptor{
		ID: "DPT17", Main: 17, BitLength: 8,
		Kind: KindBasic, Family: FamilyGeneric,
		Range:       rng(0, 63),
		Description: "scene number",
		Subtypes: map[string]Subtype{
			"001": {Name: "DPT_SceneNumber", Description: "scene number"},
		},
	}
}
