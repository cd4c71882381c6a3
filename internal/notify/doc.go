// Package notify sends the account lifecycle emails (welcome on registration,
// farewell on account closure) in the background. Requests only enqueue a
// job; a small worker pool drains the queue and hands messages to a
// mail.Sender. Delivery failures are logged and counted, never reported back
// to the request that triggered them.
package notify
