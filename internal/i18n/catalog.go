// Package i18n holds the reply catalog. Every user-visible string lives here
// in both supported languages; callers address messages by key.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

const (
	LangEnglish = "en"
	LangAmharic = "am"
)

var supported = []language.Tag{
	language.English,
	language.Amharic,
}

var matcher = language.NewMatcher(supported)

// Detect maps a BCP 47 language code from the client onto a supported reply
// language. Unknown or empty codes fall back to English.
func Detect(code string) string {
	if code == "" {
		return LangEnglish
	}
	tag, err := language.Parse(code)
	if err != nil {
		return LangEnglish
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return LangEnglish
	}
	if idx == 1 {
		return LangAmharic
	}
	return LangEnglish
}

// T renders the message for a key in the given language, applying printf-style
// arguments. Missing translations fall back to English; a missing key renders
// as the key itself so the gap is visible in chat instead of silent.
func T(lang, key string, args ...any) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[LangEnglish]
	}
	tmpl, ok := msgs[key]
	if !ok {
		tmpl, ok = catalog[LangEnglish][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

var catalog = map[string]map[string]string{
	LangEnglish: {
		"welcome":         "Welcome to AuraLab, %s! You have %d image and %d video credits to get started.",
		"help":            "Use the menu below to generate images or videos. Each image costs 1 image credit and each video costs 1 video credit. Check /balance to see what you have left.",
		"balance":         "Your balance: %d image credits, %d video credits.",
		"settings":        "Settings",
		"choose_language": "Choose your language:",
		"language_set":    "Language updated.",
		"choose_ratio":    "Choose an aspect ratio:",
		"ratio_set":       "Aspect ratio set to %s.",

		"btn_generate_image": "Generate Image",
		"btn_generate_video": "Generate Video",
		"btn_balance":        "Balance",
		"btn_help":           "Help",
		"btn_settings":       "Settings",
		"btn_text_only":      "Text Only",
		"btn_with_reference": "With Reference Image",
		"btn_retry":          "Retry",

		"choose_image_mode": "How would you like to generate your image?",
		"choose_video_mode": "How would you like to generate your video?",
		"send_prompt_image": "Send me a description of the image you want, or pick a preset below.",
		"send_prompt_video": "Send me a description of the video you want, or pick a preset below.",
		"send_reference":    "Send me the reference photo first.",
		"reference_saved":   "Got it. Now send me the description.",

		"prompt_empty":         "I need a description to work with. Please send some text.",
		"no_image_credits":     "You are out of image credits.",
		"no_video_credits":     "You are out of video credits.",
		"generation_started":   "Working on it...",
		"video_progress":       "Video generation in progress... (%d minutes elapsed)",
		"video_complete":       "Video generation complete, preparing your file...",
		"image_ready":          "Here is your image! Remaining image credits: %d.",
		"video_ready":          "Here is your video! Remaining video credits: %d.",
		"generation_failed":    "Something went wrong generating that. You were not charged, please try again.",
		"generation_timeout":   "Generation took too long and was stopped. You were not charged.",
		"quota_exhausted":      "The generation service is at capacity right now. You were not charged, please try again in a few minutes.",
		"generation_cancelled": "Cancelled.",
	},
	LangAmharic: {
		"welcome":         "እንኳን ወደ AuraLab በደህና መጡ %s! ለመጀመር %d የምስል እና %d የቪዲዮ ክሬዲቶች አሉዎት።",
		"help":            "ምስሎችን ወይም ቪዲዮዎችን ለመፍጠር ከታች ያለውን ምናሌ ይጠቀሙ። እያንዳንዱ ምስል 1 የምስል ክሬዲት፣ እያንዳንዱ ቪዲዮ 1 የቪዲዮ ክሬዲት ያስከፍላል። ቀሪዎን ለማየት /balance ይጠቀሙ።",
		"balance":         "ቀሪ ሂሳብዎ፦ %d የምስል ክሬዲቶች፣ %d የቪዲዮ ክሬዲቶች።",
		"settings":        "ቅንብሮች",
		"choose_language": "ቋንቋዎን ይምረጡ፦",
		"language_set":    "ቋንቋ ተቀይሯል።",
		"choose_ratio":    "የምስል ቅርጽ ይምረጡ፦",
		"ratio_set":       "የምስል ቅርጽ ወደ %s ተቀይሯል።",

		"btn_generate_image": "ምስል ፍጠር",
		"btn_generate_video": "ቪዲዮ ፍጠር",
		"btn_balance":        "ቀሪ ሂሳብ",
		"btn_help":           "እርዳታ",
		"btn_settings":       "ቅንብሮች",
		"btn_text_only":      "በጽሁፍ ብቻ",
		"btn_with_reference": "ከማጣቀሻ ምስል ጋር",
		"btn_retry":          "እንደገና ሞክር",

		"choose_image_mode": "ምስልዎን እንዴት መፍጠር ይፈልጋሉ?",
		"choose_video_mode": "ቪዲዮዎን እንዴት መፍጠር ይፈልጋሉ?",
		"send_prompt_image": "የሚፈልጉትን ምስል መግለጫ ይላኩ፣ ወይም ከታች ካሉት ናሙናዎች ይምረጡ።",
		"send_prompt_video": "የሚፈልጉትን ቪዲዮ መግለጫ ይላኩ፣ ወይም ከታች ካሉት ናሙናዎች ይምረጡ።",
		"send_reference":    "መጀመሪያ የማጣቀሻ ፎቶውን ይላኩ።",
		"reference_saved":   "ተቀብያለሁ። አሁን መግለጫውን ይላኩ።",

		"prompt_empty":         "ለመስራት መግለጫ ያስፈልገኛል። እባክዎ ጽሁፍ ይላኩ።",
		"no_image_credits":     "የምስል ክሬዲትዎ አልቋል።",
		"no_video_credits":     "የቪዲዮ ክሬዲትዎ አልቋል።",
		"generation_started":   "እየሰራሁ ነው...",
		"video_progress":       "የቪዲዮ ፍጠራ በሂደት ላይ ነው... (%d ደቂቃዎች አልፈዋል)",
		"video_complete":       "የቪዲዮ ፍጠራ ተጠናቋል፣ ፋይልዎን እያዘጋጀሁ ነው...",
		"image_ready":          "ምስልዎ ይኸውና! ቀሪ የምስል ክሬዲቶች፦ %d።",
		"video_ready":          "ቪዲዮዎ ይኸውና! ቀሪ የቪዲዮ ክሬዲቶች፦ %d።",
		"generation_failed":    "በፍጠራው ላይ ችግር ተፈጥሯል። አልተከፈሉም፣ እባክዎ እንደገና ይሞክሩ።",
		"generation_timeout":   "ፍጠራው በጣም ስለዘገየ ቆሟል። አልተከፈሉም።",
		"quota_exhausted":      "የፍጠራ አገልግሎቱ አሁን ተጨናንቋል። አልተከፈሉም፣ ከጥቂት ደቂቃዎች በኋላ እንደገና ይሞክሩ።",
		"generation_cancelled": "ተሰርዟል።",
	},
}
