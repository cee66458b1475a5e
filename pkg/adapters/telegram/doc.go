/*
Package telegram connects the coordinator to the Telegram Bot API.

The Poller long-polls getUpdates and turns business messages, plain
messages and reaction updates into coordinator calls; business connection
updates maintain the owner registry used for authorization. The Emitter
delivers checklists with sendChecklist through the business connection, as
a reply to the confirmed message.

Only the handful of Bot API types the workflow needs are modelled here.
*/
package telegram
