// replies.go holds the built-in exemplar table and broadcast slots. These are
// starting-point data, normally overridden in config.yaml; the digit-suffix
// convention groups sibling keys into one intent.
package bot

import "github.com/jholhewres/nene/pkg/nene/scheduler"

// DefaultReplies returns the built-in exemplar table.
func DefaultReplies() map[string]string {
	return map[string]string{
		"greeting":  "สวัสดีค่ะ ยินดีต้อนรับนะคะ มีอะไรให้เนเน่ช่วยไหมคะ",
		"greeting2": "หวัดดีค่า มาแล้วเหรอคะ วันนี้อยากได้อะไรดีคะ",
		"greeting3": "สวัสดีค่า คิดถึงจังเลย มีอะไรให้ช่วยบอกได้เลยนะคะ",
		"thanks":    "ยินดีค่ะ ไว้แวะมาอีกนะคะ",
		"thanks2":   "ไม่เป็นไรเลยค่ะ ดีใจที่ได้ช่วยนะคะ",
		"hours":     "ร้านเปิดทุกวัน 9 โมงเช้าถึง 2 ทุ่มค่ะ",
		"hours2":    "เปิด 9:00 ถึง 20:00 ทุกวันเลยค่ะ แวะมาได้เลยนะคะ",
		"price":     "สอบถามราคาสินค้าตัวไหนคะ บอกชื่อรุ่นมาได้เลยค่ะ",
		"goodbye":   "บายค่า ขอบคุณที่แวะมานะคะ",
		"goodbye2":  "แล้วเจอกันใหม่นะคะ ดูแลตัวเองด้วยน้า",
	}
}

// DefaultSlots returns the built-in daily broadcast schedule.
func DefaultSlots() []scheduler.Slot {
	return []scheduler.Slot{
		{
			ID:      "morning",
			Meaning: "Good-morning broadcast: greet everyone, wish them a good day, invite them to drop by the shop.",
			Examples: []string{
				"อรุณสวัสดิ์ค่ะ ขอให้เป็นวันที่ดีนะคะ 🌸",
				"เช้าแล้วน้า ตื่นมาสดใสกันเถอะค่ะ วันนี้มีของใหม่เข้าด้วยนะ",
			},
			At: "08:00",
		},
		{
			ID:      "evening",
			Meaning: "Good-night broadcast: thank everyone for today, wish them a good rest.",
			Examples: []string{
				"ขอบคุณสำหรับวันนี้นะคะ ฝันดีค่า 🌙",
				"พักผ่อนเยอะๆ นะคะ พรุ่งนี้เจอกันใหม่ค่ะ",
			},
			At: "21:30",
		},
	}
}
