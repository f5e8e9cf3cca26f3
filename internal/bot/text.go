package bot

import (
	"kasbook/internal/core"
	"kasbook/internal/ledger"
)

// User-facing Persian strings. Everything here is presentation only.
const (
	msgWelcome = "سلام! به KasbBook خوش آمدید.\n\nاز منوی زیر انتخاب کنید:"
	msgHome    = "🏠 منوی اصلی:"
	msgTx      = "📌 تراکنش‌ها:"
	msgReports = "📊 گزارش‌ها:"
	msgSetting = "⚙️ تنظیمات:"
	msgCats    = "🧩 مدیریت نوع‌ها:"
	msgAccess  = "🔐 دسترسی ربات:"
	msgUsers   = "👥 کاربران مجاز:"
	msgStart   = "از /start شروع کنید."

	msgSaved     = "✅ ثبت شد."
	msgEdited    = "✅ ویرایش شد."
	msgAdded     = "✅ اضافه شد."
	msgDeleted   = "✅ حذف شد."
	msgApplied   = "✅ تنظیم شد."
	msgCanceled  = "❌ لغو شد."
	msgInvalid   = "⚠️ ورودی نامعتبر است. دوباره تلاش کنید."
	msgLocked    = "⛔️ این نوع قفل است و قابل حذف نیست."
	msgNotFound  = "⚠️ موردی یافت نشد."
	msgAdminOnly = "این گزینه فقط برای ادمین اصلی فعال است."
	msgEmptyList = "موردی برای نمایش نیست."

	msgAddUserHint = "برای افزودن کاربر بفرستید:\n/adduser <id> [نام]"

	promptKind        = "نوع تراکنش را انتخاب کنید:"
	promptDate        = "تاریخ را وارد کنید:\nمیلادی YYYY-MM-DD یا شمسی YYYY/MM/DD"
	promptCategory    = "نوع را انتخاب کنید:"
	promptNewCatName  = "نام نوع جدید را وارد کنید:"
	promptAmount      = "مبلغ را وارد کنید (فقط عدد):"
	promptDescription = "توضیح را وارد کنید یا رد شوید:"
	promptField       = "کدام مورد ویرایش شود؟"
	promptNewValue    = "مقدار جدید را وارد کنید:"
	promptRangeStart  = "تاریخ شروع بازه را وارد کنید:"
	promptRangeEnd    = "تاریخ پایان بازه را وارد کنید:"

	labelTxAdd       = "➕ ثبت تراکنش"
	labelTxListToday = "📄 لیست امروز"
	labelTxListMonth = "📄 لیست این ماه (میلادی)"
	labelRpToday     = "📅 خلاصه امروز"
	labelRpMonth     = "🗓 خلاصه این ماه (میلادی)"
	labelRpRange     = "📆 بازه دلخواه"
	labelTxMenu      = "📌 تراکنش‌ها"
	labelRpMenu      = "📊 گزارش‌ها"
	labelSettings    = "⚙️ تنظیمات"
	labelCats        = "🧩 مدیریت نوع‌ها"
	labelAccess      = "🔐 دسترسی ربات"
	labelUsers       = "👥 کاربران مجاز"
	labelHome        = "⬅️ منوی اصلی"
	labelBack        = "⬅️ بازگشت"
	labelAdd         = "➕ افزودن"
	labelDelete      = "🗑 حذف"
	labelEdit        = "✏️ ویرایش"
	labelToday       = "📅 امروز"
	labelSkip        = "⏭ رد شدن"
	labelCancel      = "❌ انصراف"
	labelNewCat      = "➕ نوع جدید"

	labelModeAdmin   = "👑 حالت ادمین"
	labelModeAllowed = "📋 حالت لیست مجاز"
	labelModePublic  = "🌐 حالت همگانی"
)

// maxCategoryRows caps a category screen; anything past it is cut off.
const maxCategoryRows = 40

func kindLabel(k core.Kind) string {
	switch k {
	case core.KindIncome:
		return "💰 درآمد کاری"
	case core.KindWorkExpense:
		return "🏢 هزینه کاری"
	case core.KindPersonalExpense:
		return "👤 هزینه شخصی"
	}
	return string(k)
}

func fieldLabel(f ledger.Field) string {
	switch f {
	case ledger.FieldCategory:
		return "🏷 نوع"
	case ledger.FieldAmount:
		return "💵 مبلغ"
	case ledger.FieldDescription:
		return "📝 توضیح"
	}
	return string(f)
}
