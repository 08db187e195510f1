package i18n

// DefaultMessages returns built-in translations for all supported locales.
// These can be overridden by loading JSON files from a directory.
func DefaultMessages() map[Locale]map[string]string {
	return map[Locale]map[string]string{
		LocaleEn: enMessages,
		LocaleRu: ruMessages,
		LocaleUz: uzMessages,
		LocaleKk: kkMessages,
	}
}

var enMessages = map[string]string{
	// Common errors
	"error.not_found":         "The requested resource was not found",
	"error.unauthorized":      "Authentication is required",
	"error.forbidden":         "You do not have permission to access this resource",
	"error.bad_request":       "Invalid request",
	"error.internal":          "An internal server error occurred",
	"error.too_many_requests": "Too many requests. Please try again later",

	// Billing
	"billing.checkout_unavailable":  "This plan cannot be purchased right now. Please contact support",
	"billing.unknown_plan":          "Unknown plan or message pack",
	"billing.no_subscription":       "No subscription found for this account",
	"billing.not_managed":           "This subscription is not managed by the payment provider",
	"billing.invalid_transition":    "This action is not available for the current subscription status",
	"billing.processor_failed":      "The payment provider did not confirm the request. Please try again later",
	"billing.quota_exceeded":        "Message limit reached. Upgrade your plan or buy a message pack",
	"billing.cancel_success":        "Subscription cancelled. It stays active until %s",
	"billing.resume_success":        "Subscription resumed",
	"billing.terminate_success":     "Subscription terminated",
	"billing.trial_already_started": "A subscription already exists for this account",
}

var ruMessages = map[string]string{
	"error.not_found":         "Запрошенный ресурс не найден",
	"error.unauthorized":      "Требуется авторизация",
	"error.forbidden":         "Недостаточно прав для доступа",
	"error.bad_request":       "Некорректный запрос",
	"error.internal":          "Внутренняя ошибка сервера",
	"error.too_many_requests": "Слишком много запросов. Повторите попытку позже",

	"billing.checkout_unavailable":  "Этот тариф сейчас недоступен для покупки. Обратитесь в поддержку",
	"billing.unknown_plan":          "Неизвестный тариф или пакет сообщений",
	"billing.no_subscription":       "Подписка для этого аккаунта не найдена",
	"billing.not_managed":           "Эта подписка не управляется платёжным провайдером",
	"billing.invalid_transition":    "Действие недоступно для текущего статуса подписки",
	"billing.processor_failed":      "Платёжный провайдер не подтвердил запрос. Повторите попытку позже",
	"billing.quota_exceeded":        "Лимит сообщений исчерпан. Повысьте тариф или купите пакет сообщений",
	"billing.cancel_success":        "Подписка отменена. Она действует до %s",
	"billing.resume_success":        "Подписка возобновлена",
	"billing.terminate_success":     "Подписка завершена",
	"billing.trial_already_started": "Для этого аккаунта уже есть подписка",
}

var uzMessages = map[string]string{
	"error.not_found":         "So'ralgan resurs topilmadi",
	"error.unauthorized":      "Avtorizatsiya talab qilinadi",
	"error.forbidden":         "Ruxsat yo'q",
	"error.bad_request":       "Noto'g'ri so'rov",
	"error.internal":          "Serverda ichki xatolik yuz berdi",
	"error.too_many_requests": "So'rovlar juda ko'p. Keyinroq urinib ko'ring",

	"billing.checkout_unavailable":  "Bu tarifni hozir sotib olib bo'lmaydi. Qo'llab-quvvatlash xizmatiga murojaat qiling",
	"billing.unknown_plan":          "Noma'lum tarif yoki xabarlar paketi",
	"billing.no_subscription":       "Bu hisob uchun obuna topilmadi",
	"billing.not_managed":           "Bu obuna to'lov provayderi tomonidan boshqarilmaydi",
	"billing.invalid_transition":    "Joriy obuna holatida bu amal mavjud emas",
	"billing.processor_failed":      "To'lov provayderi so'rovni tasdiqlamadi. Keyinroq urinib ko'ring",
	"billing.quota_exceeded":        "Xabarlar limiti tugadi. Tarifni oshiring yoki xabarlar paketini sotib oling",
	"billing.cancel_success":        "Obuna bekor qilindi. U %s gacha amal qiladi",
	"billing.resume_success":        "Obuna qayta tiklandi",
	"billing.terminate_success":     "Obuna yakunlandi",
	"billing.trial_already_started": "Bu hisob uchun obuna allaqachon mavjud",
}

var kkMessages = map[string]string{
	"error.not_found":         "Сұралған ресурс табылмады",
	"error.unauthorized":      "Авторизация қажет",
	"error.forbidden":         "Қол жеткізу құқығы жоқ",
	"error.bad_request":       "Қате сұрау",
	"error.internal":          "Сервердің ішкі қатесі",
	"error.too_many_requests": "Сұраулар тым көп. Кейінірек қайталаңыз",

	"billing.checkout_unavailable":  "Бұл тарифті қазір сатып алу мүмкін емес. Қолдау қызметіне жазыңыз",
	"billing.unknown_plan":          "Белгісіз тариф немесе хабарлама пакеті",
	"billing.no_subscription":       "Бұл аккаунт үшін жазылым табылмады",
	"billing.not_managed":           "Бұл жазылымды төлем провайдері басқармайды",
	"billing.invalid_transition":    "Жазылымның ағымдағы күйінде бұл әрекет қолжетімсіз",
	"billing.processor_failed":      "Төлем провайдері сұрауды растамады. Кейінірек қайталаңыз",
	"billing.quota_exceeded":        "Хабарлама лимиті таусылды. Тарифті көтеріңіз немесе пакет сатып алыңыз",
	"billing.cancel_success":        "Жазылым тоқтатылды. Ол %s дейін жарамды",
	"billing.resume_success":        "Жазылым қайта қосылды",
	"billing.terminate_success":     "Жазылым аяқталды",
	"billing.trial_already_started": "Бұл аккаунт үшін жазылым бар",
}
