package email

const subjectNextActionReminderFmt = "Herinnering: opvolgactie voor %s"
